package service

import (
	"errors"
	"testing"
	"time"

	"course_delivery_backend/internal/config"
	"course_delivery_backend/internal/model"
	"course_delivery_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
)

func newAuthEnv(t *testing.T) (*testEnv, *AuthService) {
	t.Helper()
	e := newTestEnv(t)
	cfg := testConfig()
	cfg.JWT = config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}
	return e, NewAuthService(e.users, cfg)
}

func TestRegisterDefaultsAndDuplicates(t *testing.T) {
	e, auth := newAuthEnv(t)

	u := &model.User{Name: "新生", Email: "new@example.com", Password: "plain"}
	if err := auth.Register(u); err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != model.Student {
		t.Fatalf("role = %s, want student default", u.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte("plain")); err != nil {
		t.Fatalf("password not hashed: %v", err)
	}

	// 时间戳由 gorm 可移植默认值填充，不依赖具体数据库方言
	saved, err := e.users.FindByEmail("new@example.com")
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if saved.LastLogin.IsZero() || saved.LastSeen.IsZero() {
		t.Fatalf("timestamps not populated: lastLogin %v lastSeen %v", saved.LastLogin, saved.LastSeen)
	}

	dup := &model.User{Name: "重复", Email: "new@example.com", Password: "other"}
	if err := auth.Register(dup); !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("err = %v, want ErrEmailRegistered", err)
	}
}

func TestLoginIssuesToken(t *testing.T) {
	_, auth := newAuthEnv(t)

	u := &model.User{Name: "登录", Email: "login@example.com", Password: "secret"}
	if err := auth.Register(u); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := auth.Login("login@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := util.ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != u.ID || claims.Role != model.Student {
		t.Fatalf("claims = %+v, want user %d student", claims, u.ID)
	}

	if _, err := auth.Login("login@example.com", "wrong"); err == nil {
		t.Fatal("wrong password must not issue a token")
	}
}
