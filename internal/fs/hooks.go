package fs

import "os"

// Hooks used by OSFS; tests swap them to inject failures.
var (
	open       = os.Open
	readFile   = os.ReadFile
	writeFile  = os.WriteFile
	stat       = os.Stat
	readDir    = os.ReadDir
	remove     = os.Remove
	rename     = os.Rename
	createTemp = os.CreateTemp
	mkdirAll   = os.MkdirAll
	isNotExist = os.IsNotExist
)

var exists = func(path string) bool {
	_, err := stat(path)
	return err == nil
}

var IsDir = func(path string) bool {
	fi, err := stat(path)
	return err == nil && fi.IsDir()
}

func SetWriteFile(f func(string, []byte, os.FileMode) error) (restore func()) {
	orig := writeFile
	writeFile = f
	return func() { writeFile = orig }
}

func SetRename(f func(string, string) error) (restore func()) {
	orig := rename
	rename = f
	return func() { rename = orig }
}

func SetCreateTemp(f func(string, string) (*os.File, error)) (restore func()) {
	orig := createTemp
	createTemp = f
	return func() { createTemp = orig }
}

func SetStat(f func(string) (os.FileInfo, error)) (restore func()) {
	orig := stat
	stat = f
	return func() { stat = orig }
}
