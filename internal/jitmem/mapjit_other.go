//go:build !windows && !darwin

package jitmem

func platformMapJITFlag() int { return 0 }
