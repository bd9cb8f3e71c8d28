package libol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"os"
	"os/signal"
	"path"
	"reflect"
	"runtime"
	"syscall"
	"time"
)

// Go runs call in a recovered goroutine, mirroring libol.Go: a panic in
// call is logged instead of crashing the daemon.
func Go(call func()) {
	name := FunName(call)
	go func() {
		defer Catch(name)
		call()
	}()
}

func Catch(name string) {
	if err := recover(); err != nil {
		Fatal("%s [PANIC] >>> %v <<<", name, err)
	}
}

func FunName(i interface{}) string {
	ptr := reflect.ValueOf(i).Pointer()
	name := runtime.FuncForPC(ptr).Name()
	return path.Base(name)
}

func GenToken(n int) string {
	const letters = "0123456789abcdefghijklmnopqrstuvwxyz"
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = letters[rand.Intn(len(letters))]
	}
	return string(buf)
}

func Marshal(v interface{}, pretty bool) ([]byte, error) {
	str, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if !pretty {
		return str, nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, str, "", "  "); err != nil {
		return str, nil
	}
	return out.Bytes(), nil
}

func FileExist(file string) error {
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return err
	}
	return nil
}

// ScanAnn strips `//`-prefixed comment lines, as class-metadata JSON files
// are allowed to carry them (mirrors libol.ScanAnn).
func ScanAnn(r io.Reader) ([]byte, error) {
	data := make([]byte, 0, 1024)
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		bs := scan.Bytes()
		discard := false
		for i, b := range bs {
			if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
				continue
			}
			if b == '/' && len(bs) > i+1 && bs[i+1] == '/' {
				discard = true
			}
			break
		}
		if !discard {
			data = append(data, bs...)
		}
	}
	return data, scan.Err()
}

func UnmarshalLoad(v interface{}, file string) error {
	if err := FileExist(file); err != nil {
		return NewErr("UnmarshalLoad: %s %s", file, err)
	}
	fp, err := os.OpenFile(file, os.O_RDONLY, os.ModePerm)
	if err != nil {
		return NewErr("UnmarshalLoad: %s %s", file, err)
	}
	defer fp.Close()
	contents, err := ScanAnn(fp)
	if err != nil {
		return NewErr("UnmarshalLoad: %s %s", file, err)
	}
	if err := json.Unmarshal(contents, v); err != nil {
		return NewErr("UnmarshalLoad: %s %s", file, err)
	}
	return nil
}

func MarshalSave(v interface{}, file string, pretty bool) error {
	str, err := Marshal(v, pretty)
	if err != nil {
		return err
	}
	return os.WriteFile(file, str, 0600)
}

// Now returns the current time; production code always goes through here
// so tests can observe a fixed clock if ever substituted.
func Now() time.Time {
	return time.Now()
}

// Wait blocks until SIGINT/SIGTERM, the daemon's normal shutdown trigger.
func Wait() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c
}
