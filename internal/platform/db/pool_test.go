package db

import (
	"context"
	"testing"
)

func TestNewPoolRejectsMalformedURL(t *testing.T) {
	_, err := NewPool(context.Background(), Config{URL: "://not-a-url"})
	if err == nil {
		t.Error("NewPool with malformed URL succeeded, want parse error")
	}
}
