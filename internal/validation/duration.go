// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package validation

import (
	"fmt"
	"time"
)

type durationValidator struct {
	field    string
	value    time.Duration
	optional bool
}

// NewDurationValidator fails when d is not positive.
func NewDurationValidator(field string, d time.Duration) Validator {
	return durationValidator{field: field, value: d}
}

// NewOptionalDurationValidator accepts zero and fails on negative values.
func NewOptionalDurationValidator(field string, d time.Duration) Validator {
	return durationValidator{field: field, value: d, optional: true}
}

func (v durationValidator) Validate() error {
	switch {
	case v.optional && v.value == 0:
		return nil
	case v.value <= 0:
		return fmt.Errorf("the [%s] must be positive, got %s", v.field, v.value)
	default:
		return nil
	}
}
