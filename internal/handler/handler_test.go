package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sankalp-sachan/ATTENDLY/internal/middleware"
	"github.com/sankalp-sachan/ATTENDLY/internal/models"
)

type responseEnvelope struct {
	Data       json.RawMessage        `json:"data"`
	Error      map[string]interface{} `json:"error"`
	Pagination map[string]interface{} `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

var testUser = models.User{ID: "user-1", Email: "a@example.com", FullName: "Asha", Role: models.RoleUser}

type fixedZones struct{ loc *time.Location }

func (z fixedZones) Location(string) *time.Location {
	if z.loc == nil {
		return time.UTC
	}
	return z.loc
}

// newContext builds a test context; a nil user leaves the request anonymous.
func newContext(method, target string, body interface{}, user *models.User, params ...gin.Param) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	c.Request = httptest.NewRequest(method, target, reader)
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	c.Params = params
	if user != nil {
		middleware.SetUser(c, *user)
	}
	return c, rec
}

func decode(rec *httptest.ResponseRecorder) responseEnvelope {
	var envelope responseEnvelope
	_ = json.Unmarshal(rec.Body.Bytes(), &envelope)
	return envelope
}

func decodeData(rec *httptest.ResponseRecorder, dest interface{}) {
	_ = json.Unmarshal(decode(rec).Data, dest)
}
