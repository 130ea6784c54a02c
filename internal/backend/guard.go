package backend

import (
	"os"
	"runtime/debug"
	"unsafe"

	"github.com/edsrzf/mmap-go"
)

// view is a file and the region mapped over it. The region must be unmapped
// before the file is closed.
type view struct {
	path     string
	file     *os.File
	data     mmap.MMap
	writable bool
}

// base returns the address of the first mapped byte. v must not be empty.
func (v *view) base() uintptr {
	return uintptr(unsafe.Pointer(&v.data[0]))
}

func (v *view) contains(addr uintptr) bool {
	if len(v.data) == 0 {
		return false
	}
	return addr >= v.base() && addr-v.base() < uintptr(len(v.data))
}

// readSink keeps the load in readable from being optimized away.
var readSink byte

// readable reports whether the byte at addr, which must lie inside v, can be
// loaded right now.
func (v *view) readable(addr uintptr) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	readSink = v.data[addr-v.base()]
	return true
}

func (v *view) unmap() error {
	if v.data == nil {
		return nil
	}
	err := v.data.Unmap()
	v.data = nil
	return err
}

func (v *view) closeFile() error {
	if v.file == nil {
		return nil
	}
	err := v.file.Close()
	v.file = nil
	return err
}

// addrFault is satisfied by the runtime error raised for a memory fault while
// debug.SetPanicOnFault is enabled.
type addrFault interface {
	error
	Addr() uintptr
}

// guard runs fn with memory faults turned into panics and converts a fault
// on one of views into a MappedIOFault error. Every other panic, including a
// fault at an address outside the views, propagates unchanged.
//
// A fault inside a writable view can only come from the backing file failing
// to page in. A fault inside a read-only view is also a protection violation
// when the caller wrote to it; the address is re-read to tell the two apart.
func guard(views []*view, fn func()) (err error) {
	prev := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(prev)
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		fault, ok := r.(addrFault)
		if !ok {
			panic(r)
		}
		v := faultedView(views, fault.Addr())
		if v == nil {
			panic(r)
		}
		err = &Error{Kind: MappedIOFault, Op: "access mapped view", Path: v.path, Err: fault}
	}()
	fn()
	return nil
}

func faultedView(views []*view, addr uintptr) *view {
	for _, v := range views {
		if !v.contains(addr) {
			continue
		}
		if v.writable || !v.readable(addr) {
			return v
		}
		return nil
	}
	return nil
}
