package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"manifestboard/internal/ack"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckDocument parses a shared document without touching it. A missing or
// empty document passes because instances create it on first use.
func CheckDocument[T any](name, path string, describe func(T) string) Result {
	data, ok, res := readDocument(name, path)
	if !ok {
		return res
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not valid JSON: %v)", path, err)}
	}
	detail := "ok"
	if describe != nil {
		detail = describe(value)
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, detail)}
}

// CheckAcknowledgments parses the acknowledgment document and counts records
// that instances would skip as malformed.
func CheckAcknowledgments(path string) Result {
	const name = "Acknowledgments"
	data, ok, res := readDocument(name, path)
	if !ok {
		return res
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a JSON array: %v)", path, err)}
	}
	malformed := 0
	for _, item := range raw {
		var rec ack.Record
		if err := json.Unmarshal(item, &rec); err != nil {
			malformed++
		}
	}
	detail := pluralize(len(raw)-malformed, "record")
	if malformed > 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s, %s malformed)", path, detail, strconv.Itoa(malformed))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, detail)}
}

func readDocument(name, path string) ([]byte, bool, Result) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (absent; created on first use)", path)}
		}
		return nil, false, Result{Name: name, Detail: fmt.Sprintf("%s (error: read: %v)", path, err)}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, false, Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (empty; treated as default)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK); err != nil {
		return nil, false, Result{Name: name, Detail: fmt.Sprintf("%s (error: not writable: %v)", path, err)}
	}
	return data, true, Result{}
}

// CheckNtfy verifies that the ntfy topic answers a poll request.
func CheckNtfy(ctx context.Context, topic string) Result {
	const name = "ntfy"

	base := strings.TrimRight(strings.TrimSpace(topic), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing topic"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/json?poll=1&since=none", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "topic requires authentication"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("check failed (%d)", resp.StatusCode)}
	}
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
