package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRequestIDAssignsAndEchoesID(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = RequestIDFrom(c)
		return c.NoContent(http.StatusOK)
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Error("no request id assigned")
	}
	if got := rec.Header().Get(HeaderRequestID); got != seen {
		t.Errorf("response header id = %q, context id = %q", got, seen)
	}
}

func TestRequestIDHonorsClientSupplied(t *testing.T) {
	e := echo.New()
	e.Use(RequestID())
	var seen string
	e.GET("/", func(c echo.Context) error {
		seen = RequestIDFrom(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "rid-from-client")
	serve(e, req)
	if seen != "rid-from-client" {
		t.Errorf("request id = %q, want client-supplied rid-from-client", seen)
	}
}

func TestLoggerCorrelatesByRequestID(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID())
	e.Use(Logger(zerolog.New(&buf)))
	e.GET("/observations", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/observations", nil)
	req.Header.Set(HeaderRequestID, "rid-7")
	serve(e, req)

	line := buf.String()
	for _, want := range []string{`"request_id":"rid-7"`, `"path":"/observations"`, `"status":200`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
}

func TestRecoveryMasksPanicAs500(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(RequestID())
	e.Use(Recovery(zerolog.New(&buf)))
	e.GET("/boom", func(echo.Context) error {
		panic("kaboom")
	})

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "kaboom") {
		t.Errorf("panic value leaked into response: %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "kaboom") {
		t.Errorf("panic value missing from log: %s", buf.String())
	}
}
