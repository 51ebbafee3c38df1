// Copyright 2025 UMH Systems GmbH
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

package stages

// ReplaceAt returns a copy of l with element i replaced by v.
func ReplaceAt[L ~[]V, V any](l L, i int, v V) L {
	out := make(L, len(l))
	copy(out, l)
	if i >= 0 && i < len(l) {
		out[i] = v
	}

	return out
}

// DeleteAt returns a copy of l without element i. Order is preserved.
func DeleteAt[L ~[]V, V any](l L, i int) L {
	if i < 0 || i >= len(l) {
		out := make(L, len(l))
		copy(out, l)

		return out
	}

	out := make(L, 0, len(l)-1)
	out = append(out, l[:i]...)

	return append(out, l[i+1:]...)
}

// Append returns a copy of l with v at the end.
func Append[L ~[]V, V any](l L, v V) L {
	out := make(L, len(l), len(l)+1)
	copy(out, l)

	return append(out, v)
}

// Move returns a copy of l with element i moved by delta positions, clamped
// to the list bounds.
func Move[L ~[]V, V any](l L, i, delta int) L {
	out := make(L, len(l))
	copy(out, l)
	if i < 0 || i >= len(l) {
		return out
	}

	j := min(max(i+delta, 0), len(l)-1)
	v := out[i]
	if j > i {
		copy(out[i:j], out[i+1:j+1])
	} else {
		copy(out[j+1:i+1], out[j:i])
	}
	out[j] = v

	return out
}
