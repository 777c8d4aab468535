package core

import (
	"sync"
	"sync/atomic"
)

type MetricsState struct {
	AssetLoads         atomic.Uint64
	AssetReloads       atomic.Uint64
	FailedLoads        atomic.Uint64
	ShaderCompositions atomic.Uint64
	SkippedPasses      atomic.Uint64
}

var onceMetrics sync.Once
var metricsState *MetricsState = nil

func MetricsInitialize() error {
	onceMetrics.Do(func() {
		metricsState = &MetricsState{}
	})
	return nil
}

func MetricsCountLoad(reload bool) {
	if metricsState == nil {
		return
	}
	if reload {
		metricsState.AssetReloads.Add(1)
	} else {
		metricsState.AssetLoads.Add(1)
	}
}

func MetricsCountFailedLoad() {
	if metricsState == nil {
		return
	}
	metricsState.FailedLoads.Add(1)
}

func MetricsCountComposition() {
	if metricsState == nil {
		return
	}
	metricsState.ShaderCompositions.Add(1)
}

func MetricsCountSkippedPass() {
	if metricsState == nil {
		return
	}
	metricsState.SkippedPasses.Add(1)
}

func MetricsLoads() (loads, reloads, failed uint64) {
	if metricsState == nil {
		return 0, 0, 0
	}
	return metricsState.AssetLoads.Load(), metricsState.AssetReloads.Load(), metricsState.FailedLoads.Load()
}

func MetricsCompositions() uint64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.ShaderCompositions.Load()
}

func MetricsSkippedPasses() uint64 {
	if metricsState == nil {
		return 0
	}
	return metricsState.SkippedPasses.Load()
}
