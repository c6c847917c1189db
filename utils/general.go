package utils

import (
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

var (
	letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")
)

// FileExists reports whether the named file or directory exists.
// This function is taken from https://github.com/lightningnetwork/lnd
func FileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// UniqueFileName creates a unique file name if the provided one exists
func UniqueFileName(path string) string {
	counter := 1
	for FileExists(path) {
		ext := filepath.Ext(path)
		if counter > 1 && counter < 11 {
			path = path[:len(path)-len(ext)-4] + " (" + strconv.Itoa(counter) + ")" + ext
		} else if counter >= 11 {
			path = path[:len(path)-len(ext)-5] + " (" + strconv.Itoa(counter) + ")" + ext
		} else {
			path = path[:len(path)-len(ext)] + " (" + strconv.Itoa(counter) + ")" + ext
		}
		counter++
	}
	return path
}

// RandSeq generates a random string of length n
func RandSeq(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
