package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// Decision is the creator's verdict carried by a resolution link.
type Decision string

const (
	DecisionAccept Decision = "ACCEPT"
	DecisionReject Decision = "REJECT"
)

// VerifyPath is the public endpoint resolution links point to.
const VerifyPath = "/Grievance/VerifyResolution"

// ResolutionClaims is the payload of a resolution link token.
type ResolutionClaims struct {
	GrievanceID string   `json:"gid"`
	Round       int      `json:"round"`
	Decision    Decision `json:"decision"`
	jwt.RegisteredClaims
}

// ResolutionLinks issues and verifies the signed accept/reject links sent on close.
type ResolutionLinks struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewResolutionLinks builds the link issuer.
func NewResolutionLinks(secret, baseURL string, ttl time.Duration) *ResolutionLinks {
	if ttl <= 0 {
		ttl = 14 * 24 * time.Hour
	}
	return &ResolutionLinks{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Issue returns the accept and reject links for g's current round.
func (l *ResolutionLinks) Issue(g domain.Grievance) (accept, reject string, err error) {
	accept, err = l.link(g, DecisionAccept)
	if err != nil {
		return "", "", err
	}
	reject, err = l.link(g, DecisionReject)
	if err != nil {
		return "", "", err
	}
	return accept, reject, nil
}

func (l *ResolutionLinks) link(g domain.Grievance, decision Decision) (string, error) {
	now := l.now()
	claims := &ResolutionClaims{
		GrievanceID: g.ID,
		Round:       g.Round,
		Decision:    decision,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   g.CreatedBy,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", fmt.Errorf("sign resolution link: %w", err)
	}
	return l.baseURL + VerifyPath + "?token=" + url.QueryEscape(token), nil
}

// Parse validates a link token.
func (l *ResolutionLinks) Parse(token string) (*ResolutionClaims, error) {
	parsed, err := jwt.ParseWithClaims(token, &ResolutionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return l.secret, nil
	}, jwt.WithTimeFunc(l.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*ResolutionClaims)
	if !ok || !parsed.Valid || claims.GrievanceID == "" {
		return nil, errors.New("invalid resolution link")
	}
	if claims.Decision != DecisionAccept && claims.Decision != DecisionReject {
		return nil, errors.New("invalid resolution decision")
	}
	return claims, nil
}
