package client

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Acr4niu5/beatsync-local/pkg/api"
)

// Push uploads file into room roomID. An empty contentType is guessed from
// the file extension.
func Push(roomID, file, contentType string) (*api.UploadResponse, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(file))
	}
	q := url.Values{}
	q.Set("roomId", roomID)
	q.Set("fileName", filepath.Base(file))
	if contentType != "" {
		q.Set("contentType", contentType)
	}

	route := "/upload/direct?" + q.Encode()
	req, err := http.NewRequest(http.MethodPut, BaseURL+route, f)
	if err != nil {
		return nil, err
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := GetHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}
	var result api.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListDefaults returns the URLs of the shared default tracks.
func ListDefaults() (api.DefaultAudioResponse, error) {
	resp, err := GetHTTPClient().Get(BaseURL + "/default-audio")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, readError(resp)
	}
	var tracks api.DefaultAudioResponse
	if err := json.NewDecoder(resp.Body).Decode(&tracks); err != nil {
		return nil, err
	}
	return tracks, nil
}

// Download describes a completed Pull.
type Download struct {
	Status       int
	ContentType  string
	ContentRange string
	Written      int64
}

// Pull streams the media object key into w. A non-empty rangeHeader is sent
// verbatim, e.g. "bytes=0-1023".
func Pull(key, rangeHeader string, w io.Writer) (*Download, error) {
	segs := strings.Split(key, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	req, err := http.NewRequest(http.MethodGet, BaseURL+"/media/"+strings.Join(segs, "/"), nil)
	if err != nil {
		return nil, err
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := GetHTTPClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		return nil, fmt.Errorf("range %q not satisfiable", rangeHeader)
	default:
		return nil, readError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return nil, fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	return &Download{
		Status:       resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		ContentRange: resp.Header.Get("Content-Range"),
		Written:      n,
	}, nil
}

// readError turns a non-success response into an error, preferring the JSON
// error message when the server sent one.
func readError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	var apiErr api.ErrorResponse
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %s: %s", resp.Status, apiErr.Error)
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return fmt.Errorf("server returned %s: %s", resp.Status, msg)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
