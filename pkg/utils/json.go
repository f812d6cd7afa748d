// Copyright 2018-2019 The logrange Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package utils

import (
	"encoding/json"
	"io"
	"strings"
)

// NewJsonEncoder returns a json encoder writing to w. HTML symbols (<, >, &)
// are valid in json and written as is.
func NewJsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// ToJsonStr returns v in json, or an empty string if v cannot be encoded.
// It is for logs and command output, rows are written with NewJsonEncoder.
func ToJsonStr(v interface{}) string {
	var sb strings.Builder
	if err := NewJsonEncoder(&sb).Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
