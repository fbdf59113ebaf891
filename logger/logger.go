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

// Package logger provides the structured logging façade used throughout
// dbrouter. It wraps logrus for the primary sink and can additionally mirror
// messages through a spf13/jwalterweatherman notepad for components that
// still expect that older interface.
package logger

import (
	"io"
	"sync"

	jww "github.com/spf13/jwalterweatherman"
	"github.com/sirupsen/logrus"

	logent "github.com/nabbar/dbrouter/logger/entry"
	logfld "github.com/nabbar/dbrouter/logger/fields"
	loglvl "github.com/nabbar/dbrouter/logger/level"
)

// FuncLog is a factory for a Logger, used for dependency injection.
type FuncLog func() Logger

// Logger is the structured logging interface used by every dbrouter
// component. It is deliberately small: components log through Entry/
// level-named helpers and never reach for logrus directly, so the sink can
// be swapped without touching call sites.
type Logger interface {
	io.Writer

	SetLevel(lvl loglvl.Level)
	GetLevel() loglvl.Level

	SetFields(f logfld.Fields)
	GetFields() logfld.Fields

	// Clone duplicates the logger with a copy of its base fields, for a
	// per-connection or per-route child logger.
	Clone() Logger

	// SetSPF13Level mirrors log lines at lvl and above into an external
	// jwalterweatherman notepad (used by components still wired to jww).
	SetSPF13Level(lvl loglvl.Level, notepad *jww.Notepad)

	Debug(message string, args ...interface{}) logent.Entry
	Info(message string, args ...interface{}) logent.Entry
	Warning(message string, args ...interface{}) logent.Entry
	Error(message string, args ...interface{}) logent.Entry
	Fatal(message string, args ...interface{}) logent.Entry

	// Entry returns a builder at an arbitrary level.
	Entry(lvl loglvl.Level, message string, args ...interface{}) logent.Entry
}

type lgr struct {
	mu  sync.RWMutex
	lvl loglvl.Level
	fld logfld.Fields
	lr  *logrus.Logger
	jw  *jww.Notepad
	jwl loglvl.Level
}

// New returns a Logger backed by a fresh logrus.Logger writing to the given
// writer (use os.Stderr for process-level default).
func New(w io.Writer) Logger {
	lr := logrus.New()
	lr.SetOutput(w)
	lr.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	return &lgr{
		lvl: loglvl.InfoLevel,
		fld: logfld.New(),
		lr:  lr,
		jwl: loglvl.NilLevel,
	}
}

func (l *lgr) Write(p []byte) (n int, err error) {
	return l.lr.Writer().Write(p)
}

func (l *lgr) SetLevel(lvl loglvl.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lvl = lvl
	l.lr.SetLevel(lvl.Logrus())
}

func (l *lgr) GetLevel() loglvl.Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lvl
}

func (l *lgr) SetFields(f logfld.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fld = f.Clone()
}

func (l *lgr) GetFields() logfld.Fields {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fld.Clone()
}

func (l *lgr) Clone() Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return &lgr{
		lvl: l.lvl,
		fld: l.fld.Clone(),
		lr:  l.lr,
		jw:  l.jw,
		jwl: l.jwl,
	}
}

func (l *lgr) SetSPF13Level(lvl loglvl.Level, notepad *jww.Notepad) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.jw = notepad
	l.jwl = lvl
}

func (l *lgr) emit(lvl loglvl.Level, fields logfld.Fields, errs []error, message string, args ...interface{}) {
	l.mu.RLock()
	min := l.lvl
	base := l.fld
	jw := l.jw
	jwl := l.jwl
	l.mu.RUnlock()

	if min == loglvl.NilLevel || lvl > min {
		return
	}

	entryFields := base.Merge(fields)
	if len(errs) > 0 {
		es := make([]string, 0, len(errs))
		for _, e := range errs {
			es = append(es, e.Error())
		}
		entryFields = entryFields.Add("error", es)
	}

	l.lr.WithFields(entryFields.Logrus()).Logf(lvl.Logrus(), message, args...)

	if jw != nil && jwl != loglvl.NilLevel && lvl <= jwl {
		jw.FEEDBACK.Printf(message, args...)
	}
}

func (l *lgr) Entry(lvl loglvl.Level, message string, args ...interface{}) logent.Entry {
	return logent.New(lvl, message, l.emit, args...)
}

func (l *lgr) Debug(message string, args ...interface{}) logent.Entry {
	return l.Entry(loglvl.DebugLevel, message, args...)
}

func (l *lgr) Info(message string, args ...interface{}) logent.Entry {
	return l.Entry(loglvl.InfoLevel, message, args...)
}

func (l *lgr) Warning(message string, args ...interface{}) logent.Entry {
	return l.Entry(loglvl.WarnLevel, message, args...)
}

func (l *lgr) Error(message string, args ...interface{}) logent.Entry {
	return l.Entry(loglvl.ErrorLevel, message, args...)
}

func (l *lgr) Fatal(message string, args ...interface{}) logent.Entry {
	return l.Entry(loglvl.FatalLevel, message, args...)
}
