package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"reelsmith/internal/config"
	"reelsmith/internal/services/llm"
)

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single attempt (no retries).
func CheckLLM(ctx context.Context, name string, cfg config.LLM) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing (set llm.api_key or OPENAI_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	}, llm.WithRetryMaxAttempts(1))

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (model %s)", client.Model())}
}

// CheckPexels verifies the Pexels key against the curated endpoint.
func CheckPexels(ctx context.Context, baseURL, apiKey string) Result {
	const name = "Pexels"

	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	if strings.TrimSpace(apiKey) == "" {
		return Result{Name: name, Detail: "missing api key (set stock.pexels_api_key or PEXELS_API_KEY)"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base+"/v1/curated?per_page=1", nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	req.Header.Set("Authorization", strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%v)", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return Result{Name: name, Detail: "auth failed (invalid api key)"}
	case http.StatusTooManyRequests:
		return Result{Name: name, Detail: "rate limited (quota exhausted for this hour)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("auth check failed (%d)", resp.StatusCode)}
	}
}

// CheckCredentials passes when every named value is non-empty.
func CheckCredentials(name string, values map[string]string) Result {
	var missing []string
	for label, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "credentials present"}
}

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

// CheckDiskSpace verifies that the filesystem holding path has at least
// minFree bytes available.
func CheckDiskSpace(name, path string, minFree uint64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	free := stat.Bavail * uint64(stat.Bsize)
	detail := fmt.Sprintf("%s free", humanize.IBytes(free))
	if free < minFree {
		return Result{Name: name, Detail: fmt.Sprintf("%s, want at least %s", detail, humanize.IBytes(minFree))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
