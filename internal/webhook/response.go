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

package webhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// NoErrCode is the value of Data.ErrCode when the response body does not
// carry errcode.
const NoErrCode = -1

// Response is the outcome of one webhook call that reached the server.
// Success is the transport level flag: the server answered with 2xx.  The
// application level result is in Data.
type Response struct {
	Success    bool
	StatusCode int
	Data       Data
	Raw        []byte
}

func (r *Response) String() string {
	if r == nil {
		return "<nil>"
	}
	return fmt.Sprintf("status=%d success=%t body=%s", r.StatusCode, r.Success, strings.TrimSpace(string(r.Raw)))
}

// Data is the JSON body of the webhook response.
type Data struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	MediaID string `json:"media_id,omitempty"`
	Type    string `json:"type,omitempty"`
	// Fields has all the fields of the body, including the ones above.
	Fields map[string]any `json:"-"`
}

func (d *Data) UnmarshalJSON(b []byte) error {
	var w struct {
		ErrCode *int   `json:"errcode"`
		ErrMsg  string `json:"errmsg"`
		MediaID string `json:"media_id"`
		Type    string `json:"type"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return err
	}
	*d = Data{
		ErrCode: NoErrCode,
		ErrMsg:  w.ErrMsg,
		MediaID: w.MediaID,
		Type:    w.Type,
		Fields:  fields,
	}
	if w.ErrCode != nil {
		d.ErrCode = *w.ErrCode
	}
	return nil
}

// OK reports whether the application level error code is zero.
func (d Data) OK() bool {
	return d.ErrCode == 0
}

// String returns the string value of the field key, or an empty string, if
// the field is missing or not a string.
func (d Data) String(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// parseResponse builds the Response from the status code and the body.  The
// body of a non-2xx response is kept in Raw but not parsed.
func parseResponse(code int, body []byte) *Response {
	r := &Response{
		Success:    200 <= code && code < 300,
		StatusCode: code,
		Raw:        body,
		Data:       Data{ErrCode: NoErrCode},
	}
	if !r.Success {
		return r
	}
	if err := json.Unmarshal(body, &r.Data); err != nil {
		r.Data = Data{ErrCode: NoErrCode, ErrMsg: "invalid response body: " + err.Error()}
	}
	return r
}
