/*
Package recognition talks to the face-matching service used by the kiosk.

PURPOSE:
  The kiosk uploads a photo; the matcher answers with the employee whose
  registered face matches it. Admins enrol a face by registering a photo
  under an employee id. The service is called once per request with a
  bounded timeout and is never retried: a kiosk user simply tries again.

WIRE FORMAT (HTTPMatcher):
  POST {endpoint}/search
    {"image": "<base64 jpeg>", "threshold": 98}
  200 OK
    {"matches": [{"employee_id": "emp-1", "confidence": 99.4}]}

  An empty match list, or a best match under the threshold, is ErrNoMatch.
  Any transport error or non-2xx status is ErrUnavailable.

  POST {endpoint}/faces
    {"employee_id": "emp-1", "image": "<base64 jpeg>"}
  2xx
    body ignored; the service indexes one face under employee_id

SEE ALSO:
  - api/attendance.go: check-in handler
  - api/employees.go: face registration handler
*/
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/warp/timeclock/generic"
)

var (
	// ErrNoMatch means the image did not match any registered face.
	ErrNoMatch = errors.New("face not recognised")

	// ErrUnavailable means the matching service could not be reached or failed.
	ErrUnavailable = errors.New("face matching service unavailable")
)

// Match is the best candidate for an image.
type Match struct {
	EmployeeID generic.EmployeeID
	Confidence float64
}

// Matcher resolves a kiosk photo to an employee.
type Matcher interface {
	Match(ctx context.Context, imageBase64 string) (Match, error)

	// Register indexes the face in the image under employeeID so that
	// later Match calls can return it.
	Register(ctx context.Context, employeeID generic.EmployeeID, imageBase64 string) error
}

func cleanImage(imageBase64 string) (string, error) {
	image := StripDataURL(strings.TrimSpace(imageBase64))
	if image == "" {
		return "", &generic.ValidationError{Field: "image", Message: "required"}
	}
	return image, nil
}

// StripDataURL removes a "data:image/...;base64," prefix when present.
func StripDataURL(image string) string {
	if !strings.HasPrefix(image, "data:") {
		return image
	}
	if i := strings.Index(image, ","); i >= 0 {
		return image[i+1:]
	}
	return image
}

// =============================================================================
// HTTP MATCHER
// =============================================================================

type HTTPMatcher struct {
	endpoint  string
	threshold float64
	client    *http.Client
}

// NewHTTPMatcher returns a matcher posting to endpoint. A zero timeout
// leaves the client unbounded; callers should always set one.
func NewHTTPMatcher(endpoint string, threshold float64, timeout time.Duration) *HTTPMatcher {
	return &HTTPMatcher{
		endpoint:  strings.TrimRight(endpoint, "/"),
		threshold: threshold,
		client:    &http.Client{Timeout: timeout},
	}
}


type searchRequest struct {
	Image     string  `json:"image"`
	Threshold float64 `json:"threshold"`
}

type registerRequest struct {
	EmployeeID string `json:"employee_id"`
	Image      string `json:"image"`
}

type searchResponse struct {
	Matches []struct {
		EmployeeID string  `json:"employee_id"`
		Confidence float64 `json:"confidence"`
	} `json:"matches"`
}

func (m *HTTPMatcher) Match(ctx context.Context, imageBase64 string) (Match, error) {
	image, err := cleanImage(imageBase64)
	if err != nil {
		return Match{}, err
	}

	var out searchResponse
	if err := m.post(ctx, "/search", searchRequest{Image: image, Threshold: m.threshold}, &out); err != nil {
		return Match{}, err
	}

	var best Match
	for _, c := range out.Matches {
		if c.EmployeeID != "" && c.Confidence > best.Confidence {
			best = Match{EmployeeID: generic.EmployeeID(c.EmployeeID), Confidence: c.Confidence}
		}
	}
	if best.EmployeeID == "" || best.Confidence < m.threshold {
		return Match{}, ErrNoMatch
	}
	return best, nil
}

func (m *HTTPMatcher) Register(ctx context.Context, employeeID generic.EmployeeID, imageBase64 string) error {
	if employeeID == "" {
		return &generic.ValidationError{Field: "employee_id", Message: "required"}
	}
	image, err := cleanImage(imageBase64)
	if err != nil {
		return err
	}
	return m.post(ctx, "/faces", registerRequest{EmployeeID: string(employeeID), Image: image}, nil)
}

// post sends one JSON request. A nil out skips decoding the response.
func (m *HTTPMatcher) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}

// =============================================================================
// DISABLED MATCHER
// =============================================================================

// Disabled is used when no endpoint is configured.
type Disabled struct{}

func (Disabled) Match(context.Context, string) (Match, error) {
	return Match{}, fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
}

func (Disabled) Register(context.Context, generic.EmployeeID, string) error {
	return fmt.Errorf("%w: no endpoint configured", ErrUnavailable)
}

// =============================================================================
// STATIC MATCHER
// =============================================================================

// Static matches fixed images to employees. Useful for demos and tests.
// Register writes to the map, so it must not race with Match.
type Static map[string]generic.EmployeeID

func (s Static) Match(_ context.Context, imageBase64 string) (Match, error) {
	id, ok := s[StripDataURL(strings.TrimSpace(imageBase64))]
	if !ok {
		return Match{}, ErrNoMatch
	}
	return Match{EmployeeID: id, Confidence: 100}, nil
}

func (s Static) Register(_ context.Context, employeeID generic.EmployeeID, imageBase64 string) error {
	image, err := cleanImage(imageBase64)
	if err != nil {
		return err
	}
	s[image] = employeeID
	return nil
}
