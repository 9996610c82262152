package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Attendly API",
        "description": "Attendance statistics and study reminders.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Classes", "description": "Tracked classes"},
        {"name": "Attendance", "description": "Daily marks and per-class statistics"},
        {"name": "Dashboard", "description": "Overview across classes"},
        {"name": "Reports", "description": "CSV and PDF exports"},
        {"name": "Notifications", "description": "Reminder scheduler and inbox"},
        {"name": "Admin", "description": "Operator endpoints"}
    ],
    "paths": {
        "/classes": {
            "get": {
                "tags": ["Classes"],
                "summary": "List classes",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "all", "in": "query", "type": "boolean", "description": "Every class with its attendance, unpaginated"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            },
            "post": {
                "tags": ["Classes"],
                "summary": "Create class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateClassRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/Envelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/classes/{id}": {
            "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
            "get": {
                "tags": ["Classes"],
                "summary": "Get class with its attendance log",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            },
            "patch": {
                "tags": ["Classes"],
                "summary": "Update class",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateClassRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            },
            "delete": {
                "tags": ["Classes"],
                "summary": "Delete class and its attendance",
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/classes/{id}/attendance/{date}": {
            "parameters": [
                {"name": "id", "in": "path", "required": true, "type": "string"},
                {"name": "date", "in": "path", "required": true, "type": "string", "format": "date"}
            ],
            "put": {
                "tags": ["Attendance"],
                "summary": "Mark attendance for a date",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkAttendanceRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            },
            "delete": {
                "tags": ["Attendance"],
                "summary": "Clear the attendance mark for a date",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/classes/{id}/stats": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Attendance statistics and tier for a class",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "as_of", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Attendance dashboard",
                "parameters": [{"name": "as_of", "in": "query", "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/reports/attendance": {
            "get": {
                "tags": ["Reports"],
                "summary": "Export attendance report",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"], "default": "csv"},
                    {"name": "as_of", "in": "query", "type": "string", "format": "date"}
                ],
                "responses": {"200": {"description": "File", "schema": {"type": "file"}}}
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List in-app notifications",
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Updated"}}
            }
        },
        "/notifications/session": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Report whether the caller's ticker is running",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            },
            "post": {
                "tags": ["Notifications"],
                "summary": "Start the notification ticker for the caller",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/StartSessionRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}}}
            },
            "delete": {
                "tags": ["Notifications"],
                "summary": "Stop the caller's notification ticker",
                "responses": {"204": {"description": "Stopped"}}
            }
        },
        "/notifications/tick": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Run one scheduler tick now",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "409": {"description": "No active session", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        },
        "/admin/metrics": {
            "get": {
                "tags": ["Admin"],
                "summary": "Process metrics snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/Envelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/Envelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateClassRequest": {
            "type": "object",
            "required": ["name", "start_date"],
            "properties": {
                "name": {"type": "string", "maxLength": 120},
                "start_date": {"type": "string", "format": "date"},
                "target_percentage": {"type": "integer", "minimum": 50, "maximum": 100}
            }
        },
        "UpdateClassRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "maxLength": 120},
                "start_date": {"type": "string", "format": "date"},
                "target_percentage": {"type": "integer", "minimum": 50, "maximum": 100}
            }
        },
        "MarkAttendanceRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["present", "absent", "holiday"]}
            }
        },
        "StartSessionRequest": {
            "type": "object",
            "properties": {
                "time_zone": {"type": "string", "example": "Asia/Kolkata"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "Envelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
