// Copyright (c) 2021-2026 Rustam Gilyazov and Contributors.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package wecombot

// In this file: files and media uploads.

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rusq/wecombot/internal/osext"
	"github.com/rusq/wecombot/internal/webhook"
)

// Media kinds accepted by UploadMedia.
const (
	MediaFile  = webhook.TypeFile
	MediaVoice = webhook.TypeVoice
)

// Size limits of the upload_media API.
const (
	minMediaSize  = 5
	maxFileSize   = 20 << 20
	maxVoiceSize  = 2 << 20
	maxImageBytes = 2 << 20
)

// mediaURLKeys are the response fields that may carry the URL of the
// uploaded media.
var mediaURLKeys = []string{"url", "media_url", "file_url", "download_url"}

// SendFile uploads the file and sends it to the bot.
func (s *Sender) SendFile(ctx context.Context, path string, botID string) (*Result, error) {
	c := s.begin(ctx, "SendFile")
	c.progress(0.1, "Processing file: %s", path)

	abs, fi, err := validateFile(c, path)
	if err != nil {
		return nil, c.fail(err)
	}
	if err := checkMediaSize(fi, MediaFile); err != nil {
		return nil, c.fail(err)
	}
	webhookURL, err := s.resolveURL(c, botID)
	if err != nil {
		return nil, c.fail(err)
	}
	c.progress(0.5, "Uploading file to WeCom")
	up, err := s.upload(c, webhookURL, MediaFile, abs)
	if err != nil {
		return nil, c.fail(err)
	}

	c.progress(0.7, "Sending file to WeCom")
	payload := webhook.NewFile(up.MediaID)
	resp, err := s.transmit(c, webhookURL, payload.MsgType, func(ctx context.Context) (*webhook.Response, error) {
		return s.tr.Send(ctx, webhookURL, payload)
	})
	if err != nil {
		return nil, c.fail(err)
	}
	if err := checkResponse(resp, "file"); err != nil {
		return nil, c.fail(err)
	}
	s.record(c, "[file] "+fi.Name())

	r := success("File sent successfully")
	r.FileName = fi.Name()
	r.FileSize = fi.Size()
	r.MediaID = up.MediaID
	return c.done(r), nil
}

// UploadMedia uploads the file and returns its media ID, without sending a
// message.  kind is MediaFile or MediaVoice, MediaFile if empty.
func (s *Sender) UploadMedia(ctx context.Context, path string, kind string, botID string) (*Result, error) {
	c := s.begin(ctx, "UploadMedia")
	if kind == "" {
		kind = MediaFile
	}
	c.progress(0.1, "Uploading media: %s (type=%s)", path, kind)

	if kind != MediaFile && kind != MediaVoice {
		return nil, c.fail(errValidation("Invalid upload_media_type: %s. Allowed values: %s, %s", kind, MediaFile, MediaVoice))
	}
	abs, fi, err := validateFile(c, path)
	if err != nil {
		return nil, c.fail(err)
	}
	if err := checkMediaSize(fi, kind); err != nil {
		return nil, c.fail(err)
	}
	webhookURL, err := s.resolveURL(c, botID)
	if err != nil {
		return nil, c.fail(err)
	}
	c.progress(0.5, "Uploading media to WeCom")
	up, err := s.upload(c, webhookURL, kind, abs)
	if err != nil {
		return nil, c.fail(err)
	}

	r := success("Media uploaded successfully")
	r.FileName = fi.Name()
	r.FileSize = fi.Size()
	r.MediaID = up.MediaID
	r.MediaType = up.Type
	if r.MediaType == "" {
		r.MediaType = kind
	}
	r.MediaURL = mediaURL(up)
	return c.done(r), nil
}

// validateFile checks that path is an existing regular file and returns its
// absolute path.
func validateFile(c *call, path string) (string, fs.FileInfo, error) {
	c.progress(0.15, "Validating file: %s", path)
	if strings.TrimSpace(path) == "" {
		return "", nil, errValidation("File path cannot be empty")
	}
	fi, err := osext.RegularFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return "", nil, errFile(err, "File not found: %s", path)
		case errors.Is(err, osext.ErrNotAFile):
			return "", nil, errFile(err, "Not a file: %s", path)
		default:
			return "", nil, errFile(err, "Unable to access file %s: %v", path, err)
		}
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, errFile(err, "Unable to resolve path %s: %v", path, err)
	}
	return abs, fi, nil
}

func checkMediaSize(fi fs.FileInfo, kind string) error {
	limit := int64(maxFileSize)
	if kind == MediaVoice {
		limit = maxVoiceSize
	}
	size := fi.Size()
	if size < minMediaSize {
		return errFile(nil, "File is too small: %s is %s, minimum is %d bytes", fi.Name(), humanize.IBytes(uint64(size)), minMediaSize)
	}
	if size > limit {
		return errFile(nil, "File is too large: %s is %s, %s limit is %s", fi.Name(), humanize.IBytes(uint64(size)), kind, humanize.IBytes(uint64(limit)))
	}
	return nil
}

// upload uploads the file and returns the response data.  The media ID is
// guaranteed to be present.
func (s *Sender) upload(c *call, webhookURL string, kind string, path string) (*webhook.Data, error) {
	c.lg.DebugContext(c.ctx, "uploading", "kind", kind, "path", path)
	if validURL(webhookURL) {
		if _, err := webhook.UploadURL(webhookURL, kind); err != nil {
			return nil, newErr(CodeValidation, err, "Invalid webhook URL for media upload: %s: %v", webhook.Redact(webhookURL), err)
		}
	}
	resp, err := s.transmit(c, webhookURL, "upload_media", func(ctx context.Context) (*webhook.Response, error) {
		return s.tr.Upload(ctx, webhookURL, kind, path)
	})
	if err != nil {
		return nil, err
	}
	if err := checkResponse(resp, "media"); err != nil {
		return nil, err
	}
	if resp.Data.MediaID == "" {
		return nil, errAPI("WeCom upload_media API did not return media_id")
	}
	return &resp.Data, nil
}

func mediaURL(d *webhook.Data) string {
	for _, k := range mediaURLKeys {
		if v := d.String(k); validURL(v) {
			return v
		}
	}
	return ""
}
