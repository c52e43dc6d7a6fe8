package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type principal struct {
	id   string
	role string
}

// TestContext carries HTTP state between the steps of one scenario.
type TestContext struct {
	baseURL    string
	client     *http.Client
	signingKey []byte
	issuer     string
	audience   string

	actors  map[string]principal
	saved   map[string]string
	current string

	lastStatus int
	lastBody   map[string]any
}

func NewTestContext() *TestContext {
	return &TestContext{
		baseURL:    envOr("GIVEBRIDGE_E2E_URL", "http://localhost:8080"),
		client:     &http.Client{Timeout: 10 * time.Second},
		signingKey: []byte(envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production")),
		issuer:     envOr("JWT_ISSUER", "givebridge"),
		audience:   envOr("JWT_AUDIENCE", "givebridge-api"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Reset clears scenario state.
func (tc *TestContext) Reset() {
	tc.actors = make(map[string]principal)
	tc.saved = make(map[string]string)
	tc.current = ""
	tc.lastStatus = 0
	tc.lastBody = nil
}

// SetActor registers name with a fresh user id and makes it current.
func (tc *TestContext) SetActor(name, role string) {
	if _, ok := tc.actors[name]; !ok {
		tc.actors[name] = principal{id: uuid.NewString(), role: role}
	}
	tc.current = name
}

func (tc *TestContext) ActAs(name string) error {
	if _, ok := tc.actors[name]; !ok {
		return fmt.Errorf("unknown actor %q", name)
	}
	tc.current = name
	return nil
}

func (tc *TestContext) ActorID(name string) (string, error) {
	p, ok := tc.actors[name]
	if !ok {
		return "", fmt.Errorf("unknown actor %q", name)
	}
	return p.id, nil
}

func (tc *TestContext) Save(key, value string) { tc.saved[key] = value }

func (tc *TestContext) Saved(key string) (string, error) {
	v, ok := tc.saved[key]
	if !ok {
		return "", fmt.Errorf("nothing saved as %q", key)
	}
	return v, nil
}

func (tc *TestContext) token() (string, error) {
	p, ok := tc.actors[tc.current]
	if !ok {
		return "", nil
	}
	now := time.Now()
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": p.id,
		"role":    p.role,
		"sub":     p.id,
		"iss":     tc.issuer,
		"aud":     []string{tc.audience},
		"iat":     now.Unix(),
		"exp":     now.Add(time.Hour).Unix(),
		"jti":     uuid.NewString(),
	}).SignedString(tc.signingKey)
}

func (tc *TestContext) Do(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, tc.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	tok, err := tc.token()
	if err != nil {
		return err
	}
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := tc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tc.lastStatus = resp.StatusCode
	tc.lastBody = nil
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &tc.lastBody); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (tc *TestContext) LastStatus() int { return tc.lastStatus }

// ResponseField resolves a dotted path such as "donation.status" or
// "data.donations.0.id" in the last response body.
func (tc *TestContext) ResponseField(path string) (any, error) {
	var cur any = tc.lastBody
	for _, part := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[part]
			if !ok {
				return nil, fmt.Errorf("field %q missing in response", path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", part, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q", path)
		}
	}
	return cur, nil
}
