package authz

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/BruksfildServices01/clinic-api/internal/models"
)

var ErrInvalidToken = errors.New("invalid_token")

// Claims is the JWT payload issued at login.
type Claims struct {
	Role      models.Role `json:"role"`
	ClinicID  string      `json:"clinicId,omitempty"`
	DoctorID  string      `json:"doctorId,omitempty"`
	PatientID string      `json:"patientId,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for user. doctorID and patientID are the profile ids
// of the user, uuid.Nil when absent.
func (i *Issuer) Issue(user *models.User, doctorID, patientID uuid.UUID) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)

	claims := Claims{
		Role: user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if user.ClinicID != nil {
		claims.ClinicID = user.ClinicID.String()
	}
	if doctorID != uuid.Nil {
		claims.DoctorID = doctorID.String()
	}
	if patientID != uuid.Nil {
		claims.PatientID = patientID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates an HMAC signed token and returns its principal and expiry.
func (i *Issuer) Parse(tokenString string) (Principal, time.Time, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, time.Time{}, ErrInvalidToken
	}

	pr, err := claims.principal()
	if err != nil {
		return Principal{}, time.Time{}, err
	}

	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return pr, exp, nil
}

func (c Claims) principal() (Principal, error) {
	userID, err := uuid.Parse(c.Subject)
	if err != nil || !c.Role.Valid() {
		return Principal{}, ErrInvalidToken
	}

	pr := Principal{UserID: userID, Role: c.Role, TokenID: c.ID}

	for _, f := range []struct {
		raw string
		dst *uuid.UUID
	}{
		{c.ClinicID, &pr.ClinicID},
		{c.DoctorID, &pr.DoctorID},
		{c.PatientID, &pr.PatientID},
	} {
		if f.raw == "" {
			continue
		}
		id, err := uuid.Parse(f.raw)
		if err != nil {
			return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
		*f.dst = id
	}

	if pr.Role.IsStaff() && pr.ClinicID == uuid.Nil {
		return Principal{}, ErrInvalidToken
	}
	return pr, nil
}
