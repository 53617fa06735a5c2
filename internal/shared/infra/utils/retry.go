package utils

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Retry ejecuta una función con reintentos configurables
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}

		select {
		case <-time.After(delay):
			// espera antes del siguiente intento
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// Backoff calcula esperas exponenciales acotadas con jitter ("equal jitter").
type Backoff struct {
	Min time.Duration
	Max time.Duration
}

// Delay devuelve la espera para el intento dado (0 = primer reintento).
// El resultado está siempre en [d/2, d] con d = min(Max, Min*2^attempt).
func (b Backoff) Delay(attempt int) time.Duration {
	d := b.ceiling(attempt)
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

func (b Backoff) ceiling(attempt int) time.Duration {
	minDelay, maxDelay := b.Min, b.Max
	if minDelay <= 0 {
		minDelay = 100 * time.Millisecond
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	if attempt > 30 {
		return maxDelay
	}
	d := minDelay << attempt
	if d <= 0 || d > maxDelay {
		return maxDelay
	}
	return d
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marca err como no reintentable: RetryForever lo devuelve (desenvuelto) sin esperar.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// RetryForever reintenta fn sin límite de intentos hasta que tenga éxito, devuelva
// un error Permanent o se cancele ctx. onRetry (opcional) se invoca antes de cada espera.
func RetryForever(ctx context.Context, b Backoff, onRetry func(attempt int, err error, wait time.Duration), fn func() error) error {
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var stop *permanentError
		if errors.As(err, &stop) {
			return stop.err
		}

		wait := b.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
