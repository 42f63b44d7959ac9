// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package driverbase

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultTracePrefix   = "apache.derby.xdbc"
	defaultTraceMaxKb    = int64(1024)
	defaultTraceMaxFiles = 100
	traceFileExt         = ".jsonl"
	traceStampLayout     = "2006-01-02-15-04-05.000000000"
)

type traceFileConfig struct {
	dir      string
	prefix   string
	maxKb    int64
	maxFiles int
}

// TraceFileOption configures a RotatingFileWriter.
type TraceFileOption func(*traceFileConfig)

// WithTracingFolderPath sets the directory trace files are written to.
// It defaults to <user config dir>/.xdbc/traces.
func WithTracingFolderPath(dir string) TraceFileOption {
	return func(cfg *traceFileConfig) { cfg.dir = dir }
}

func WithLogNamePrefix(prefix string) TraceFileOption {
	return func(cfg *traceFileConfig) { cfg.prefix = prefix }
}

// WithFileSizeMaxKb sets the size after which a new file is started.
// Values below the default are raised to it.
func WithFileSizeMaxKb(kb int64) TraceFileOption {
	return func(cfg *traceFileConfig) { cfg.maxKb = kb }
}

// WithFileCountMax sets how many trace files are kept. Values below the
// default are raised to it.
func WithFileCountMax(n int) TraceFileOption {
	return func(cfg *traceFileConfig) { cfg.maxFiles = n }
}

func (cfg *traceFileConfig) resolve() error {
	if strings.TrimSpace(cfg.prefix) == "" {
		cfg.prefix = defaultTracePrefix
	}
	cfg.maxKb = max(defaultTraceMaxKb, cfg.maxKb)
	cfg.maxFiles = max(defaultTraceMaxFiles, cfg.maxFiles)

	if strings.TrimSpace(cfg.dir) == "" {
		confDir, err := os.UserConfigDir()
		if err != nil {
			return err
		}
		cfg.dir = filepath.Join(confDir, ".xdbc", "traces")
	}
	if err := os.MkdirAll(cfg.dir, 0o755); err != nil {
		return err
	}

	// fail now rather than on the first exported span
	probe, err := os.CreateTemp(cfg.dir, cfg.prefix)
	if err != nil {
		return err
	}
	_, err = probe.WriteString("file started")
	return errors.Join(err, probe.Close(), os.Remove(probe.Name()))
}

// RotatingFileWriter appends to "<prefix>-<UTC timestamp>.jsonl" files in
// a directory, starting a new file once the current one exceeds the
// size limit and pruning the oldest files beyond the count limit. A
// new writer resumes the newest file if it still has room.
type RotatingFileWriter struct {
	cfg     traceFileConfig
	current *os.File
}

func NewRotatingFileWriter(options ...TraceFileOption) (*RotatingFileWriter, error) {
	var cfg traceFileConfig
	for _, opt := range options {
		opt(&cfg)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}
	return &RotatingFileWriter{cfg: cfg}, nil
}

func (w *RotatingFileWriter) GetTracingFolderPath() string { return w.cfg.dir }
func (w *RotatingFileWriter) GetLogNamePrefix() string     { return w.cfg.prefix }
func (w *RotatingFileWriter) GetFileSizeMaxKb() int64      { return w.cfg.maxKb }
func (w *RotatingFileWriter) GetFileCountMax() int         { return w.cfg.maxFiles }

func (w *RotatingFileWriter) Close() error {
	if w.current == nil {
		return nil
	}
	err := w.current.Close()
	w.current = nil
	return err
}

// Clear closes the writer and removes every trace file it owns.
func (w *RotatingFileWriter) Clear() error {
	if err := w.Close(); err != nil {
		return err
	}
	files, err := w.files()
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *RotatingFileWriter) Stat() (fs.FileInfo, error) {
	if w.current == nil {
		return nil, errors.New("no trace file is open")
	}
	return w.current.Stat()
}

func (w *RotatingFileWriter) Write(p []byte) (int, error) {
	if err := w.rotate(); err != nil {
		return 0, err
	}
	if err := w.open(); err != nil {
		return 0, err
	}
	return w.current.Write(p)
}

func (w *RotatingFileWriter) maxBytes() int64 { return w.cfg.maxKb * 1024 }

// files lists the trace files oldest first; the timestamp in the name
// sorts lexically.
func (w *RotatingFileWriter) files() ([]string, error) {
	return filepath.Glob(filepath.Join(w.cfg.dir, w.cfg.prefix+"*"+traceFileExt))
}

func (w *RotatingFileWriter) rotate() error {
	if w.current == nil {
		return nil
	}
	info, err := w.current.Stat()
	if err != nil {
		return err
	}
	if info.Size() < w.maxBytes() {
		return nil
	}
	if err := w.Close(); err != nil {
		return err
	}
	return w.prune()
}

func (w *RotatingFileWriter) prune() error {
	files, err := w.files()
	if err != nil || len(files) <= w.cfg.maxFiles {
		return nil
	}
	for _, f := range files[:len(files)-w.cfg.maxFiles] {
		if err := os.Remove(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *RotatingFileWriter) open() error {
	if w.current != nil {
		return nil
	}
	// 0666 so the file can be reopened for append on Windows
	const perm = 0o666

	if files, err := w.files(); err == nil && len(files) > 0 {
		last := files[len(files)-1]
		if info, err := os.Stat(last); err == nil && info.Size() < w.maxBytes() {
			if f, err := os.OpenFile(last, os.O_APPEND|os.O_WRONLY, perm); err == nil {
				w.current = f
				return nil
			}
		}
	}

	name := w.cfg.prefix + "-" + time.Now().UTC().Format(traceStampLayout) + traceFileExt
	f, err := os.OpenFile(filepath.Join(w.cfg.dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, perm)
	if err != nil {
		return err
	}
	w.current = f
	return nil
}
