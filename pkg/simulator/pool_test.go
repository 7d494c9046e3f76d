package simulator

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolAddGetSize(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewPool()
	for i := 0; i < 3; i++ {
		assert.NoError(t, p.Add(ln.Addr().String(), time.Second, time.Second))
	}
	assert.Equal(t, 3, p.Size())

	_, err = p.Get(1)
	assert.NoError(t, err)

	_, err = p.Get(10)
	assert.Error(t, err)
}

func TestPoolCapacity(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewPool()
	for i := 0; i < MaxPoolSize; i++ {
		require.NoError(t, p.Add(ln.Addr().String(), time.Second, time.Second))
	}

	err = p.Add(ln.Addr().String(), time.Second, time.Second)
	assert.Error(t, err)
}

func TestPoolResize(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	p := NewPool()
	require.NoError(t, p.Resize(2, ln.Addr().String(), time.Second, time.Second))
	assert.Equal(t, 2, p.Size())

	require.NoError(t, p.Resize(1, ln.Addr().String(), time.Second, time.Second))
	assert.Equal(t, 1, p.Size())
}
