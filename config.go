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

// In this file: limits and their validation.

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/rusq/wecombot/internal/network"
)

// Limits are the delivery limits of the Sender.
type Limits struct {
	// MaxAttempts is the number of transport attempts per call.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" koanf:"max_attempts" validate:"gte=1,lte=10"`
	// InitialWait is the wait after the first failed attempt.
	InitialWait time.Duration `json:"initial_wait,omitempty" yaml:"initial_wait,omitempty" koanf:"initial_wait" validate:"gte=0"`
	// MaxWait caps the wait between attempts.
	MaxWait time.Duration `json:"max_wait,omitempty" yaml:"max_wait,omitempty" koanf:"max_wait" validate:"gtefield=InitialWait"`
	// Timeout is the timeout of a single HTTP exchange.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" koanf:"timeout" validate:"gt=0"`
	// PerMinute is the number of calls per minute allowed for each bot.
	// NoLimit (or 0 in the final limits) disables the limit.  In the limits
	// given to Apply, 0 means "not set" and NoLimit must be used instead.
	PerMinute int `json:"per_minute,omitempty" yaml:"per_minute,omitempty" koanf:"per_minute" validate:"gte=-1,lte=600"`
	// Burst is the number of calls that can be made at once.
	Burst int `json:"burst,omitempty" yaml:"burst,omitempty" koanf:"burst" validate:"gte=0,lte=100"`
	// HistorySize is the capacity of the message history, 0 means
	// unbounded.
	HistorySize int `json:"history_size,omitempty" yaml:"history_size,omitempty" koanf:"history_size" validate:"gte=0"`
}

// NoLimit is the PerMinute value that disables the rate limit.
const NoLimit = -1

// DefLimits are the default limits.  WeCom allows 20 messages per minute per
// bot.
var DefLimits = Limits{
	MaxAttempts: network.DefAttempts,
	InitialWait: network.DefInitialWait,
	MaxWait:     network.DefMaxWait,
	Timeout:     60 * time.Second,
	PerMinute:   network.DefPerMinute,
	Burst:       network.DefPerMinute,
	HistorySize: 0,
}

var (
	validate *validator.Validate
	// OptErrTranslations is the translator for the validation errors.
	OptErrTranslations ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterStructValidation(templateCardValidation, TemplateCard{})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	OptErrTranslations, _ = uni.GetTranslator("en")
	if err := en_translations.RegisterDefaultTranslations(validate, OptErrTranslations); err != nil {
		panic(err)
	}
}

// Validate checks the limits.
func (l Limits) Validate() error {
	return validate.Struct(l)
}

// Apply applies the non-zero values of other to l.  Use NoLimit to disable
// the rate limit.
func (l *Limits) Apply(other Limits) error {
	if other.MaxAttempts != 0 {
		l.MaxAttempts = other.MaxAttempts
	}
	if other.InitialWait != 0 {
		l.InitialWait = other.InitialWait
	}
	if other.MaxWait != 0 {
		l.MaxWait = other.MaxWait
	}
	if other.Timeout != 0 {
		l.Timeout = other.Timeout
	}
	if other.PerMinute != 0 {
		l.PerMinute = other.PerMinute
	}
	if other.Burst != 0 {
		l.Burst = other.Burst
	}
	if other.HistorySize != 0 {
		l.HistorySize = other.HistorySize
	}
	return translateErr(l.Validate())
}

func (l Limits) policy() network.Policy {
	return network.Policy{
		MaxAttempts: l.MaxAttempts,
		InitialWait: l.InitialWait,
		MaxWait:     l.MaxWait,
	}
}

// translateErr returns the validation errors in a human readable form.
func translateErr(err error) error {
	var vErr validator.ValidationErrors
	if !errors.As(err, &vErr) {
		return err
	}
	var errs []error
	for _, fe := range vErr {
		errs = append(errs, errors.New(fe.Translate(OptErrTranslations)))
	}
	return errors.Join(errs...)
}
