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

// In this file: images.

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"os"
	"path"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/rusq/wecombot/internal/network"
	"github.com/rusq/wecombot/internal/osext"
	"github.com/rusq/wecombot/internal/webhook"
)

// imageFormats are the image formats accepted by the webhook, as reported
// by image.DecodeConfig.
var imageFormats = []string{"jpeg", "png"}

// SendImage sends the image to the bot.  src is either a local path or an
// http(s) URL, which is downloaded first.
func (s *Sender) SendImage(ctx context.Context, src string, botID string) (*Result, error) {
	c := s.begin(ctx, "SendImage")
	c.progress(0.1, "Processing image: %s", src)

	if strings.TrimSpace(src) == "" {
		return nil, c.fail(errValidation("Image path cannot be empty"))
	}
	var (
		localPath  = src
		webhookURL string
		err        error
	)
	if osext.IsURL(src) {
		// nothing is downloaded for a bot that can't be resolved.
		if webhookURL, err = s.resolveURL(c, botID); err != nil {
			return nil, c.fail(err)
		}
		tf, err := s.download(c, src)
		if err != nil {
			return nil, c.fail(err)
		}
		defer tf.Close()
		localPath = tf.Name()
	}
	data, err := readImage(c, localPath)
	if err != nil {
		return nil, c.fail(err)
	}
	if webhookURL == "" {
		if webhookURL, err = s.resolveURL(c, botID); err != nil {
			return nil, c.fail(err)
		}
	}

	c.progress(0.6, "Sending image to WeCom")
	payload := webhook.NewImage(data)
	resp, err := s.transmit(c, webhookURL, payload.MsgType, func(ctx context.Context) (*webhook.Response, error) {
		return s.tr.Send(ctx, webhookURL, payload)
	})
	if err != nil {
		return nil, c.fail(err)
	}
	if err := checkResponse(resp, "image"); err != nil {
		return nil, c.fail(err)
	}
	s.record(c, "[image] "+src)

	r := success("Image sent successfully")
	r.ImagePath = src
	r.FileSize = int64(len(data))
	return c.done(r), nil
}

// download downloads the image to a temporary file, which is removed when
// closed.
func (s *Sender) download(c *call, src string) (*osext.TempFile, error) {
	c.progress(0.25, "Downloading image: %s", src)
	tf, err := osext.CreateTemp("wecombot-image-*" + path.Ext(stripQuery(src)))
	if err != nil {
		return nil, errFile(err, "Unable to create temporary file: %v", err)
	}
	var contentType string
	err = network.WithRetry(c.ctx, nil, s.policy(), func(ctx context.Context) error {
		if err := tf.Truncate(0); err != nil {
			return err
		}
		if _, err := tf.Seek(0, io.SeekStart); err != nil {
			return err
		}
		var err error
		contentType, err = s.tr.Download(ctx, src, tf)
		return err
	})
	if err == nil {
		err = checkImageType(contentType)
	}
	if err != nil {
		tf.Close()
		var se *webhook.StatusError
		var e *Error
		switch {
		case errors.As(err, &e):
			return nil, e
		case errors.As(err, &se):
			return nil, errFile(err, "Failed to download image from %s: HTTP %d", src, se.Code)
		case webhook.IsTransient(err):
			return nil, errNetwork(err, "Failed to download image from %s: %v", src, err)
		default:
			return nil, errFile(err, "Failed to download image from %s: %v", src, err)
		}
	}
	return tf, nil
}

func checkImageType(contentType string) error {
	if contentType == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mt, "image/") {
		return errFile(err, "URL does not point to an image, content type: %s", contentType)
	}
	return nil
}

func stripQuery(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// readImage validates and reads the image file.
func readImage(c *call, p string) ([]byte, error) {
	_, fi, err := validateFile(c, p)
	if err != nil {
		return nil, err
	}
	if fi.Size() > maxImageBytes {
		return nil, errFile(nil, "Image is too large: %s, limit is %s", humanize.IBytes(uint64(fi.Size())), humanize.IBytes(maxImageBytes))
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, errFile(err, "Unable to read image %s: %v", p, err)
	}
	c.progress(0.3, "Checking image format")
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, errValidation("Unsupported image format: %v. Only JPG and PNG images are supported", err)
	}
	if !isImageFormat(format) {
		return nil, errValidation("Unsupported image format: %s. Only JPG and PNG images are supported", format)
	}
	return data, nil
}

func isImageFormat(f string) bool {
	for _, ok := range imageFormats {
		if f == ok {
			return true
		}
	}
	return false
}
