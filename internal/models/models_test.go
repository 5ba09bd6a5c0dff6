package models

import (
	"encoding/json"
	"testing"
)

func TestEnvelope(t *testing.T) {
	t.Run("decodes login payload", func(t *testing.T) {
		raw := `{"code":200,"message":"ok","data":{"token":"u1","userInfo":{"userId":7,"userName":"neo","balance":12.5}}}`

		var env Envelope[LoginData]
		if err := json.Unmarshal([]byte(raw), &env); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !env.OK() {
			t.Error("expected OK envelope")
		}
		if env.Data.Token != "u1" || env.Data.UserInfo.Username != "neo" || env.Data.UserInfo.UserID != 7 {
			t.Errorf("unexpected payload %+v", env.Data)
		}
	})

	t.Run("non-200 code is not OK", func(t *testing.T) {
		env := Envelope[TokenData]{Code: 500}
		if env.OK() {
			t.Error("expected non-OK envelope")
		}
	})
}

func TestMovieListParams(t *testing.T) {
	got := MovieListParams{Page: 2, PageSize: 20, Category: "drama"}.Values().Encode()
	if got != "category=drama&page=2&pageSize=20" {
		t.Errorf("Values() = %s", got)
	}

	if enc := (MovieListParams{}).Values().Encode(); enc != "" {
		t.Errorf("expected empty query, got %s", enc)
	}
}

func TestCredentialKind(t *testing.T) {
	if Guest.String() != "guest" || User.String() != "user" {
		t.Errorf("unexpected kind names %s %s", Guest, User)
	}
}
