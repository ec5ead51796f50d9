package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SupabaseSigner signs uploads against Supabase Storage over its HTTP API.
// Buckets are expected to be public so the returned public URL is readable.
type SupabaseSigner struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

type supabaseSignedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign
}

func (c *SupabaseSigner) SignUpload(ctx context.Context, bucket, path, contentType string) (string, string, error) {
	if c.BaseURL == "" {
		return "", "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	base := strings.TrimRight(c.BaseURL, "/")
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, path)

	bodyBytes, err := json.Marshal(map[string]interface{}{
		"expiresIn": int(signedURLTTL.Seconds()),
		"upsert":    false,
	})
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-upsert", "false")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		if (resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusForbidden) &&
			(strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized")) {
			return "", "", fmt.Errorf("supabase storage requires the service_role key, not the anon key (body: %s)", bodyStr)
		}
		return "", "", fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}

	var data supabaseSignedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", "", fmt.Errorf("supabase response decode: %w", err)
	}
	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", base, bucket, path)
	switch {
	case data.SignedURL != "":
		return data.SignedURL, publicURL, nil
	case data.SignedURLSnake != "":
		return data.SignedURLSnake, publicURL, nil
	case data.URL != "":
		u := data.URL
		if !strings.HasPrefix(u, "/") {
			u = "/" + u
		}
		if !strings.HasPrefix(u, "/storage/v1") {
			u = "/storage/v1" + u
		}
		return base + u, publicURL, nil
	}
	return "", "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}
