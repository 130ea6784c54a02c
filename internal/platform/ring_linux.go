//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	opRead  = 22 // IORING_OP_READ, 5.6+
	opWrite = 23 // IORING_OP_WRITE, 5.6+

	enterGetEvents = 1 << 0
	featSingleMmap = 1 << 0

	offRings = 0
	offSQEs  = 0x10000000

	sqeSize = 64
	cqeSize = 16
)

// sqe is struct io_uring_sqe with the fields a plain read or write needs.
type sqe struct {
	opcode   uint8
	flags    uint8
	ioprio   uint16
	fd       int32
	off      uint64
	addr     uint64
	len      uint32
	rwFlags  uint32
	userData uint64
	_        [24]byte
}

// cqe is struct io_uring_cqe.
type cqe struct {
	userData uint64
	res      int32
	flags    uint32
}

// ringOffsets covers both io_sqring_offsets and io_cqring_offsets, which
// share a layout. Word 6 is the SQ index array; word 5 is the CQE array.
type ringOffsets struct {
	head, tail, mask, entries uint32
	_, w5, w6, _              uint32
	_                         uint64
}

type params struct {
	sqEntries, cqEntries, flags, sqThreadCPU, sqThreadIdle, features, wqFd uint32
	_                                                                      [3]uint32
	sqOff, cqOff                                                           ringOffsets
}

// Ring is a private io_uring instance for positional block reads and writes.
// Exactly one entry is in flight at a time: each call submits and waits.
// A Ring is not safe for concurrent use.
type Ring struct {
	fd    int
	rings []byte // SQ and CQ rings share one mapping
	sqes  []byte

	sqTail, sqMask         *uint32
	sqArray                unsafe.Pointer
	cqHead, cqTail, cqMask *uint32
	cqes                   unsafe.Pointer
}

// NewRing sets up a ring with the given queue depth. It returns an error
// wrapping errors.ErrUnsupported when the kernel is older than 5.6 or
// io_uring is disabled.
func NewRing(entries uint) (*Ring, error) {
	if !kernelAtLeast(5, 6) {
		return nil, fmt.Errorf("io_uring: kernel too old: %w", errors.ErrUnsupported)
	}

	var p params
	fd, _, errno := unix.Syscall(unix.SYS_IO_URING_SETUP, uintptr(entries), uintptr(unsafe.Pointer(&p)), 0)
	if errno != 0 {
		if errno == unix.ENOSYS || errno == unix.EPERM {
			return nil, fmt.Errorf("io_uring_setup: %w: %w", errno, errors.ErrUnsupported)
		}
		return nil, fmt.Errorf("io_uring_setup: %w", errno)
	}

	rg := &Ring{fd: int(fd)}
	if p.features&featSingleMmap == 0 {
		_ = rg.Close()
		return nil, fmt.Errorf("io_uring: no single-mmap support: %w", errors.ErrUnsupported)
	}
	if err := rg.mapRings(&p); err != nil {
		_ = rg.Close()
		return nil, err
	}
	return rg, nil
}

func (rg *Ring) mapRings(p *params) error {
	size := max(
		uintptr(p.sqOff.w6)+uintptr(p.sqEntries)*4,
		uintptr(p.cqOff.w5)+uintptr(p.cqEntries)*cqeSize,
	)
	const prot, flags = unix.PROT_READ | unix.PROT_WRITE, unix.MAP_SHARED | unix.MAP_POPULATE

	rings, err := unix.Mmap(rg.fd, offRings, int(size), prot, flags)
	if err != nil {
		return fmt.Errorf("mmap io_uring rings: %w", err)
	}
	rg.rings = rings

	sqes, err := unix.Mmap(rg.fd, offSQEs, int(p.sqEntries)*sqeSize, prot, flags)
	if err != nil {
		return fmt.Errorf("mmap io_uring sqes: %w", err)
	}
	rg.sqes = sqes

	base := unsafe.Pointer(&rings[0])
	word := func(off uint32) *uint32 { return (*uint32)(unsafe.Add(base, off)) }
	rg.sqTail = word(p.sqOff.tail)
	rg.sqMask = word(p.sqOff.mask)
	rg.sqArray = unsafe.Add(base, p.sqOff.w6)
	rg.cqHead = word(p.cqOff.head)
	rg.cqTail = word(p.cqOff.tail)
	rg.cqMask = word(p.cqOff.mask)
	rg.cqes = unsafe.Add(base, p.cqOff.w5)
	return nil
}

// Close releases the ring. It is safe to call more than once.
func (rg *Ring) Close() error {
	if rg == nil || rg.fd < 0 {
		return nil
	}
	var errs []error
	for _, m := range [][]byte{rg.sqes, rg.rings} {
		if m != nil {
			errs = append(errs, unix.Munmap(m))
		}
	}
	errs = append(errs, unix.Close(rg.fd))
	*rg = Ring{fd: -1}
	return errors.Join(errs...)
}

// ReadBlock fills p from fd at offset off. Fewer than len(p) bytes are
// returned only at end of file.
func (rg *Ring) ReadBlock(fd uintptr, p []byte, off int64) (int, error) {
	n, err := rg.full(opRead, fd, p, off)
	if err != nil {
		return n, fmt.Errorf("io_uring read: %w", err)
	}
	return n, nil
}

// WriteBlock writes p to fd at offset off, resubmitting partial writes.
func (rg *Ring) WriteBlock(fd uintptr, p []byte, off int64) (int, error) {
	n, err := rg.full(opWrite, fd, p, off)
	if err != nil {
		return n, fmt.Errorf("io_uring write: %w", err)
	}
	return n, nil
}

// full repeats op until p is covered or the kernel moves zero bytes.
func (rg *Ring) full(op uint8, fd uintptr, p []byte, off int64) (int, error) {
	if rg.fd < 0 {
		return 0, os.ErrClosed
	}
	var done int
	for done < len(p) {
		n, err := rg.do(op, fd, p[done:], off+int64(done))
		if err != nil {
			return done, err
		}
		if n == 0 {
			break
		}
		done += n
	}
	return done, nil
}

// do submits one entry and waits for its completion. With a single entry in
// flight the slot at the current tail is always free.
func (rg *Ring) do(op uint8, fd uintptr, buf []byte, off int64) (int, error) {
	tail := atomic.LoadUint32(rg.sqTail)
	idx := tail & *rg.sqMask

	*(*sqe)(unsafe.Pointer(&rg.sqes[uintptr(idx)*sqeSize])) = sqe{
		opcode:   op,
		fd:       int32(fd),                                 //nolint:gosec // G115: fd values are small
		off:      uint64(off),                               //nolint:gosec // G115: offsets are non-negative
		addr:     uint64(uintptr(unsafe.Pointer(&buf[0]))),
		len:      uint32(len(buf)),                          //nolint:gosec // G115: block sizes fit in uint32
		userData: uint64(tail),
	}
	*(*uint32)(unsafe.Add(rg.sqArray, uintptr(idx)*4)) = idx
	atomic.StoreUint32(rg.sqTail, tail+1)

	submit := uintptr(1)
	for {
		_, _, errno := unix.Syscall6(unix.SYS_IO_URING_ENTER, uintptr(rg.fd), submit, 1, enterGetEvents, 0, 0)
		if errno == unix.EINTR {
			// The entry was consumed; only its completion is outstanding.
			submit = 0
			continue
		}
		if errno != 0 {
			return 0, fmt.Errorf("io_uring_enter: %w", errno)
		}
		break
	}
	runtime.KeepAlive(buf)

	head := atomic.LoadUint32(rg.cqHead)
	if head == atomic.LoadUint32(rg.cqTail) {
		return 0, errors.New("io_uring_enter: no completion")
	}
	res := (*cqe)(unsafe.Add(rg.cqes, uintptr(head&*rg.cqMask)*cqeSize)).res
	atomic.StoreUint32(rg.cqHead, head+1)

	if res < 0 {
		return 0, unix.Errno(-res)
	}
	return int(res), nil
}

func kernelAtLeast(major, minor int) bool {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return false
	}
	var ma, mi int
	if _, err := fmt.Sscanf(unix.ByteSliceToString(u.Release[:]), "%d.%d", &ma, &mi); err != nil {
		return false
	}
	return ma > major || (ma == major && mi >= minor)
}

var ringSupported = sync.OnceValue(func() bool {
	rg, err := NewRing(1)
	if err != nil {
		return false
	}
	_ = rg.Close()
	return true
})

// RingSupported reports whether a ring can be set up here. The answer is
// computed once per process.
func RingSupported() bool {
	return ringSupported()
}
