// Copyright 2025 The kvstored Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package logger 进程全局日志
//
// 日志级别挂在一个 AtomicLevel 上 admin server 的 /-/logger 路由
// 只翻转级别 不重建 logger
// SIGHUP 重载经 SetOptions 按新配置重建全局 logger 已派生的链接 Logger
// 仍写往原来的输出 但与新 logger 共享同一个 AtomicLevel 级别随之生效
// 链接级日志通过 With 派生 携带 conn 字段便于按链接过滤
package logger

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Stdout     bool   `config:"stdout"`
	Level      string `config:"level"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"` // unit: MB
	MaxAge     int    `config:"maxAge"`  // unit: days
	MaxBackups int    `config:"maxBackups"`
}

func (o *Options) setDefaults() {
	if o.Level == "" {
		o.Level = "info"
	}
	if o.Filename == "" {
		o.Filename = "kvstored.log"
	}
	if o.MaxSize <= 0 {
		o.MaxSize = 100
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 7
	}
	if o.MaxBackups <= 0 {
		o.MaxBackups = 10
	}
}

func toZapLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}

type Logger struct {
	sugared *zap.SugaredLogger
}

func (l Logger) Debugf(template string, args ...any) {
	l.sugared.Debugf(template, args...)
}

func (l Logger) Infof(template string, args ...any) {
	l.sugared.Infof(template, args...)
}

func (l Logger) Warnf(template string, args ...any) {
	l.sugared.Warnf(template, args...)
}

func (l Logger) Errorf(template string, args ...any) {
	l.sugared.Errorf(template, args...)
}

// With 派生携带固定字段的 Logger 典型用法是给链接日志挂上 conn id
func (l Logger) With(args ...any) Logger {
	return Logger{sugared: l.sugared.With(args...)}
}

// atomicLevel 所有 Logger 实例共享 级别热更只改这一处
var atomicLevel = zap.NewAtomicLevel()

// New 创建并返回标准 Logger 实例
//
// Stdout 为 true 时日志写入标准输出 否则写入滚动文件
func New(opt Options) Logger {
	opt.setDefaults()
	atomicLevel.SetLevel(toZapLevel(opt.Level))

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Local().Format("2006-01-02 15:04:05.000"))
	}
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoder := zapcore.NewConsoleEncoder(encoderConfig)

	var w zapcore.WriteSyncer
	if opt.Stdout {
		w = zapcore.AddSync(os.Stdout)
	} else {
		// 初始化日志目录
		if err := os.MkdirAll(filepath.Dir(opt.Filename), os.ModePerm); err != nil {
			panic(err)
		}

		w = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.Filename,
			MaxSize:    opt.MaxSize,
			MaxBackups: opt.MaxBackups,
			MaxAge:     opt.MaxAge,
			LocalTime:  true,
		})
	}

	core := zapcore.NewCore(encoder, w, atomicLevel)
	return Logger{
		sugared: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar(),
	}
}

var std = New(Options{Stdout: true})

// SetOptions 设置全局 Logger 配置
func SetOptions(opt Options) {
	std = New(opt)
}

// SetLevel 热更全局日志级别 不重建 logger
func SetLevel(s string) {
	atomicLevel.SetLevel(toZapLevel(s))
}

// With 从全局 Logger 派生携带固定字段的 Logger
func With(args ...any) Logger {
	return std.With(args...)
}

func Debugf(template string, args ...any) {
	std.Debugf(template, args...)
}

func Infof(template string, args ...any) {
	std.Infof(template, args...)
}

func Warnf(template string, args ...any) {
	std.Warnf(template, args...)
}

func Errorf(template string, args ...any) {
	std.Errorf(template, args...)
}
