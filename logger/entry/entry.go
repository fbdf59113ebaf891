/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package entry models a single, not-yet-emitted log line.
package entry

import (
	logfld "github.com/nabbar/dbrouter/logger/fields"
	loglvl "github.com/nabbar/dbrouter/logger/level"
)

// Entry is a single log line under construction. Callers chain Field/Error
// calls before Log flushes it through the owning logrus entry.
type Entry interface {
	// Field adds one structured field and returns the receiver for chaining.
	Field(key string, val interface{}) Entry

	// Fields merges a whole Fields set.
	Fields(f logfld.Fields) Entry

	// Error attaches one or more errors to the entry; logged under the "error" key.
	Error(err ...error) Entry

	// Log emits the entry at its configured level.
	Log()
}

type FuncLog func(lvl loglvl.Level, fields logfld.Fields, errs []error, message string, args ...interface{})

type ent struct {
	lvl     loglvl.Level
	message string
	args    []interface{}
	fields  logfld.Fields
	errs    []error
	emit    FuncLog
}

// New returns a new Entry bound to emit, the owning logger's flush function.
func New(lvl loglvl.Level, message string, emit FuncLog, args ...interface{}) Entry {
	return &ent{
		lvl:     lvl,
		message: message,
		args:    args,
		fields:  logfld.New(),
		emit:    emit,
	}
}

func (e *ent) Field(key string, val interface{}) Entry {
	e.fields.Add(key, val)
	return e
}

func (e *ent) Fields(f logfld.Fields) Entry {
	e.fields = e.fields.Merge(f)
	return e
}

func (e *ent) Error(err ...error) Entry {
	for _, er := range err {
		if er != nil {
			e.errs = append(e.errs, er)
		}
	}
	return e
}

func (e *ent) Log() {
	if e.emit == nil {
		return
	}
	e.emit(e.lvl, e.fields, e.errs, e.message, e.args...)
}
