package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest is the login payload.
type LoginRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// LoginResponse carries the issued access token and student identity.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Student     StudentInfo `json:"student"`
}

// StudentInfo is the public subset of a student's record.
type StudentInfo struct {
	ID        string `json:"student_id"`
	FullName  string `json:"full_name"`
	Program   string `json:"program"`
	YearLevel int    `json:"year_level"`
}

// JWTClaims are the claims embedded in issued access tokens.
type JWTClaims struct {
	StudentID string `json:"sid"`
	FullName  string `json:"name"`
	jwt.RegisteredClaims
}
