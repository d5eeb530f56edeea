// Copyright 2025 Ragware Labs
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

package ai

import "strings"

// SanitizeJSON cleans up a model response so it can be parsed as JSON.
// It strips markdown code fences, quotes bare None/null tokens that some
// models emit in place of string values, and repairs keys with a missing
// opening quote.
func SanitizeJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	s = quoteBareTokens(s)
	return repairKeys(s)
}

// quoteBareTokens wraps bare None and null value tokens in quotes.
// Models trained on Python output occasionally emit `: None` where a
// string value is expected, which encoding/json rejects.
func quoteBareTokens(s string) string {
	for _, token := range []string{"None", "null"} {
		marker := ": " + token
		for {
			idx := strings.Index(s, marker)
			if idx < 0 {
				break
			}
			end := idx + len(marker)
			// Only a value position ends with , } ] or newline.
			rest := strings.TrimLeft(s[end:], " \t")
			if len(rest) > 0 && rest[0] != ',' && rest[0] != '}' && rest[0] != ']' && rest[0] != '\n' {
				break
			}
			s = s[:idx] + `: "` + token + `"` + s[end:]
		}
	}
	return s
}

// repairKeys fixes keys that are missing their opening quote.
// Example: `, comment":` becomes `, "comment":`
func repairKeys(s string) string {
	result := []rune(s)
	fixed := make([]rune, 0, len(result)+16)

	i := 0
	for i < len(result) {
		ch := result[i]

		if ch == '{' || ch == ',' {
			fixed = append(fixed, ch)
			i++

			for i < len(result) && (result[i] == ' ' || result[i] == '\n' || result[i] == '\t') {
				fixed = append(fixed, result[i])
				i++
			}

			if i < len(result) && result[i] != '"' && isLetter(result[i]) {
				keyStart := i
				for i < len(result) && (isLetter(result[i]) || result[i] == '_' || result[i] == ' ') {
					i++
				}
				keyEnd := i

				// A closing quote followed by a colon means the opening quote was dropped.
				if i+1 < len(result) && result[i] == '"' && result[i+1] == ':' {
					fixed = append(fixed, '"')
					fixed = append(fixed, result[keyStart:keyEnd]...)
					continue
				}
				fixed = append(fixed, result[keyStart:i]...)
			}
		} else {
			fixed = append(fixed, ch)
			i++
		}
	}

	return string(fixed)
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
