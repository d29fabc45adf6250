package main

import (
	"os"
	"time"

	"github.com/rcrowley/go-metrics"
)

type appMetrics struct {
	StartTime        time.Time
	PID              int
	ClientsConnected metrics.Counter
	RequestsHandled  metrics.Counter
	ChecksumFailures metrics.Counter
	ResendRequests   metrics.Counter
}

type exportMetrics struct {
	UpTime           string
	PID              int
	ClientsConnected int64
	RequestsHandled  int64
	ChecksumFailures int64
	ResendRequests   int64
}

var srvMetrics = registerMetrics()

func registerMetrics() *appMetrics {
	var m appMetrics

	m.StartTime = time.Now()
	m.PID = os.Getpid()
	m.ClientsConnected = metrics.NewCounter()
	metrics.Register("ClientsConnected", m.ClientsConnected)
	m.RequestsHandled = metrics.NewCounter()
	metrics.Register("RequestsHandled", m.RequestsHandled)
	m.ChecksumFailures = metrics.NewCounter()
	metrics.Register("ChecksumFailures", m.ChecksumFailures)
	m.ResendRequests = metrics.NewCounter()
	metrics.Register("ResendRequests", m.ResendRequests)

	return &m
}

func (m *appMetrics) Export() *exportMetrics {
	now := time.Now()
	uptime := now.Sub(m.StartTime)

	return &exportMetrics{
		UpTime:           uptime.String(),
		PID:              m.PID,
		ClientsConnected: m.ClientsConnected.Count(),
		RequestsHandled:  m.RequestsHandled.Count(),
		ChecksumFailures: m.ChecksumFailures.Count(),
		ResendRequests:   m.ResendRequests.Count(),
	}
}
