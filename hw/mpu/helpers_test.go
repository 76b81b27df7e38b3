package mpu_test

import (
	"testing"

	"cm3mpu/hw/hwio"
	"cm3mpu/hw/mpu"
	"cm3mpu/hw/scs"
	"cm3mpu/hw/snapshot"
)

type busWrite struct {
	addr, val uint32
}

// recBus records all writes going through it.
type recBus struct {
	hwio.BankIO32
	writes []busWrite
}

func (b *recBus) Write32(addr uint32, val uint32) {
	b.writes = append(b.writes, busWrite{addr, val})
	b.BankIO32.Write32(addr, val)
}

// countLocker checks critical sections are balanced and never nested.
type countLocker struct {
	t      testing.TB
	held   bool
	nlocks int
}

func (l *countLocker) Lock() {
	l.t.Helper()
	if l.held {
		l.t.Fatalf("critical section entered twice")
	}
	l.held = true
	l.nlocks++
}

func (l *countLocker) Unlock() {
	l.t.Helper()
	if !l.held {
		l.t.Fatalf("critical section exited while not held")
	}
	l.held = false
}

func newTestMPU(tb testing.TB, opts ...mpu.Option) (*scs.SCS, *mpu.Manager) {
	tb.Helper()

	s := scs.New()
	m := mpu.New(s.Bus, opts...)
	if err := m.Init(); err != nil {
		tb.Fatalf("Init() = %v", err)
	}
	return s, m
}

func mustRegion(tb testing.TB, m *mpu.Manager, region uint8) snapshot.Region {
	tb.Helper()

	r, err := m.Region(region)
	if err != nil {
		tb.Fatalf("Region(%d) = %v", region, err)
	}
	return r
}
