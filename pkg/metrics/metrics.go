// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// roomchatNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	roomchatNamespace = "roomchat"

	scopeLabelName   = "scope"
	commandLabelName = "command"
	resultLabelName  = "result"

	// 投递范围标签取值。
	ScopeAll     = "all"
	ScopeRoom    = "room"
	ScopeUnicast = "unicast"
	ScopeSelf    = "self"

	// 命令执行结果标签取值。
	ResultOK      = "ok"
	ResultBadArgs = "bad_args"
	ResultUnknown = "unknown"
	ResultFault   = "fault"
	ResultQuit    = "quit"
)

var (
	// sessionDurationBuckets 为会话时长直方图的桶划分，单位为秒。
	// [1 4 16 64 256 1024 4096 16384 65536]
	sessionDurationBuckets = prometheus.ExponentialBuckets(1, 4, 9)

	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: roomchatNamespace,
			Name:      "sessions_active",
			Help:      "number of sessions currently registered",
		})

	ConnectionsAdmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: roomchatNamespace,
			Name:      "connections_admitted_total",
			Help:      "number of accepted connections that got a session",
		})

	ConnectionsRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: roomchatNamespace,
			Name:      "connections_rejected_total",
			Help:      "number of accepted connections closed because the server was full",
		})

	MessagesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: roomchatNamespace,
			Name:      "messages_delivered_total",
			Help:      "number of messages written to a recipient",
		}, []string{scopeLabelName})

	DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: roomchatNamespace,
			Name:      "delivery_failures_total",
			Help:      "number of recipient writes that failed",
		}, []string{scopeLabelName})

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: roomchatNamespace,
			Name:      "commands_total",
			Help:      "number of interpreted input lines by command and result",
		}, []string{commandLabelName, resultLabelName})

	SessionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: roomchatNamespace,
			Name:      "session_duration_seconds",
			Help:      "lifetime of a session from admission to close",
			Buckets:   sessionDurationBuckets,
		})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(SessionsActive)
		r.MustRegister(ConnectionsAdmitted)
		r.MustRegister(ConnectionsRejected)
		r.MustRegister(MessagesDelivered)
		r.MustRegister(DeliveryFailures)
		r.MustRegister(CommandsTotal)
		r.MustRegister(SessionDuration)
		registerLoggingMetrics(r)
		metricRegisterer = r
	})
}
