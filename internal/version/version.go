// Package version 记录构建版本，可通过 -ldflags "-X" 覆盖。
package version

import (
	"github.com/blang/semver/v4"
)

// Version 为构建版本号，发布时通过
// -ldflags "-X github.com/lk2023060901/roomchat-go/internal/version.Version=x.y.z" 注入。
var Version = "0.1.0"

// GitCommit 为构建时的提交哈希。
var GitCommit = ""

var defaultVersion = semver.MustParse("0.0.0")

// Semver 解析 Version，注入的值不合法时返回 0.0.0。
func Semver() semver.Version {
	v, err := semver.ParseTolerant(Version)
	if err != nil {
		return defaultVersion
	}
	return v
}

// String 返回标准化后的版本号，附带提交哈希。
func String() string {
	s := Semver().String()
	if GitCommit != "" {
		s += "+" + GitCommit
	}
	return s
}
