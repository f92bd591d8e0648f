// Package compound stitches several readers into one logical reader with a
// single, continuous record index space.
//
// Member record counts are queried when a member is added and kept in a
// cumulative table. A global index is translated to (member, local index)
// by a binary search over that table; members without records never own an
// index and are skipped by the translation.
//
//	r := compound.New[chem.Molecule](a, b, c) // 3, 0 and 5 records
//	member, local, _ := r.Locate(3)           // 2, 0
//
// A compound reader is not safe for concurrent use, like every reader.
package compound

import (
	"fmt"
	"sort"

	"github.com/davidvella/chemio/errors"
	"github.com/davidvella/chemio/record"
)

const component = "CompoundReader"

var errOwned = errors.New("reader already belongs to a compound reader")

type member[T any] struct {
	r     record.Reader[T]
	count int64
	cbID  record.CallbackID
}

// Reader presents its members as one record.Reader. It owns its members:
// Close closes every member still attached.
type Reader[T any] struct {
	record.Callbacks

	members []member[T]
	// sums[i] is the number of records held by members[0..i].
	sums   []int64
	cursor int64
	state  record.State
	ok     bool
	owner  any
}

var _ record.Reader[struct{}] = (*Reader[struct{}])(nil)

// New returns a compound reader over readers. It panics if a reader cannot
// be counted; use AddReader to handle such failures.
func New[T any](readers ...record.Reader[T]) *Reader[T] {
	c := &Reader[T]{}
	for _, r := range readers {
		if err := c.AddReader(r); err != nil {
			panic(err)
		}
	}
	return c
}

// AddReader appends r and takes ownership of it. The record count of r is
// queried immediately; progress of that count is forwarded to the callbacks
// of the compound reader. On failure r is left unowned and unchanged.
func (c *Reader[T]) AddReader(r record.Reader[T]) error {
	if c.state == record.StateClosed {
		return errors.Wrap(errors.ErrClosed, component, "AddReader", "")
	}
	if owner := r.Owner(); owner != nil {
		return errors.WrapContract(errOwned, component, "AddReader", "validate owner")
	}

	id := r.RegisterIOCallback(c.forward)
	count, err := r.NumRecords()
	if err != nil {
		r.UnregisterIOCallback(id)
		return errors.Wrap(err, component, "AddReader", fmt.Sprintf("count member %d", len(c.members)))
	}

	r.SetOwner(c)
	c.members = append(c.members, member[T]{r: r, count: count, cbID: id})
	c.sums = append(c.sums, c.total()+count)
	c.ok = c.ok || r.Good()
	return nil
}

func (c *Reader[T]) forward(_ record.Stream, progress float64) record.Action {
	return c.NotifyIOCallbacks(c, progress)
}

// RemoveReader detaches member idx and returns it. The caller owns the
// returned reader. Cumulative counts of later members shift down and the
// cursor is clamped to the new total; indices past the removed member now
// address different records.
func (c *Reader[T]) RemoveReader(idx int) (record.Reader[T], error) {
	if idx < 0 || idx >= len(c.members) {
		return nil, errors.WrapContract(errors.ErrIndexOutOfRange, component, "RemoveReader",
			fmt.Sprintf("validate member %d", idx))
	}

	m := c.members[idx]
	m.r.UnregisterIOCallback(m.cbID)
	m.r.SetOwner(nil)

	c.members = append(c.members[:idx], c.members[idx+1:]...)
	c.sums = append(c.sums[:idx], c.sums[idx+1:]...)
	for i := idx; i < len(c.sums); i++ {
		c.sums[i] -= m.count
	}
	c.cursor = min(c.cursor, c.total())
	return m.r, nil
}

// NumReaders returns the number of members.
func (c *Reader[T]) NumReaders() int {
	return len(c.members)
}

// Member returns member i.
func (c *Reader[T]) Member(i int) (record.Reader[T], error) {
	if i < 0 || i >= len(c.members) {
		return nil, errors.WrapContract(errors.ErrIndexOutOfRange, component, "Member",
			fmt.Sprintf("validate member %d", i))
	}
	return c.members[i].r, nil
}

// CumulativeCounts returns a copy of the cumulative record count table.
func (c *Reader[T]) CumulativeCounts() []int64 {
	return append([]int64(nil), c.sums...)
}

func (c *Reader[T]) total() int64 {
	if len(c.sums) == 0 {
		return 0
	}
	return c.sums[len(c.sums)-1]
}

// Locate translates global index idx into the position of the member owning
// it and the index of the record within that member.
func (c *Reader[T]) Locate(idx int64) (memberIdx int, local int64, err error) {
	if idx < 0 || idx >= c.total() {
		return 0, 0, errors.WrapContract(errors.ErrIndexOutOfRange, component, "Locate",
			fmt.Sprintf("validate index %d", idx))
	}

	i := sort.Search(len(c.sums), func(i int) bool { return c.sums[i] > idx })
	return i, idx - c.start(i), nil
}

func (c *Reader[T]) start(i int) int64 {
	if i == 0 {
		return 0
	}
	return c.sums[i-1]
}

// ReaderIDForRecordIndex returns the 1-based position of the member owning
// global index idx, or 0 when idx is out of range.
func (c *Reader[T]) ReaderIDForRecordIndex(idx int64) int {
	i, _, err := c.Locate(idx)
	if err != nil {
		return 0
	}
	return i + 1
}

// Good reports whether the compound is open and its last operation
// succeeded. Adding members folds their state in with a logical OR, so a
// compound with at least one good member is good; see AllGood.
func (c *Reader[T]) Good() bool {
	return c.state == record.StateOpen && c.ok
}

// AllGood reports whether the compound and every member are good.
func (c *Reader[T]) AllGood() bool {
	if c.state != record.StateOpen || len(c.members) == 0 {
		return false
	}
	for _, m := range c.members {
		if !m.r.Good() {
			return false
		}
	}
	return true
}

func (c *Reader[T]) State() record.State { return c.state }
func (c *Reader[T]) RecordIndex() int64  { return c.cursor }
func (c *Reader[T]) Owner() any          { return c.owner }
func (c *Reader[T]) SetOwner(owner any)  { c.owner = owner }

func (c *Reader[T]) NumRecords() (int64, error) {
	if c.state == record.StateClosed {
		return 0, errors.Wrap(errors.ErrClosed, component, "NumRecords", "")
	}
	return c.total(), nil
}

func (c *Reader[T]) HasMoreData() bool {
	return c.state == record.StateOpen && c.cursor < c.total()
}

func (c *Reader[T]) Read(obj *T, opts ...record.ReadOption) error {
	return c.readAt(c.cursor, obj, "Read", opts)
}

func (c *Reader[T]) ReadAt(idx int64, obj *T, opts ...record.ReadOption) error {
	return c.readAt(idx, obj, "ReadAt", opts)
}

func (c *Reader[T]) readAt(idx int64, obj *T, operation string, opts []record.ReadOption) error {
	m, local, err := c.route(idx, operation)
	if err != nil {
		return err
	}

	if err := m.ReadAt(local, obj, opts...); err != nil {
		c.ok = false
		return errors.Wrap(err, component, operation, fmt.Sprintf("read record %d", idx))
	}

	c.cursor = idx + 1
	c.ok = true
	return nil
}

func (c *Reader[T]) Skip() error {
	m, local, err := c.route(c.cursor, "Skip")
	if err != nil {
		return err
	}

	if err := m.SetRecordIndex(local); err != nil {
		c.ok = false
		return errors.Wrap(err, component, "Skip", fmt.Sprintf("position member at %d", local))
	}
	if err := m.Skip(); err != nil {
		c.ok = false
		return errors.Wrap(err, component, "Skip", fmt.Sprintf("skip record %d", c.cursor))
	}

	c.cursor++
	c.ok = true
	return nil
}

// SetRecordIndex moves the global cursor to idx in [0, NumRecords] and
// positions the owning member accordingly.
func (c *Reader[T]) SetRecordIndex(idx int64) error {
	if c.state == record.StateClosed {
		return errors.Wrap(errors.ErrClosed, component, "SetRecordIndex", "")
	}
	if idx < 0 || idx > c.total() {
		c.ok = false
		return errors.WrapContract(errors.ErrIndexOutOfRange, component, "SetRecordIndex",
			fmt.Sprintf("validate index %d", idx))
	}

	if idx < c.total() {
		i, local, _ := c.Locate(idx)
		if err := c.members[i].r.SetRecordIndex(local); err != nil {
			c.ok = false
			return errors.Wrap(err, component, "SetRecordIndex", fmt.Sprintf("position member %d", i))
		}
	}

	c.cursor = idx
	c.ok = true
	return nil
}

// route returns the member owning idx and the local index within it.
func (c *Reader[T]) route(idx int64, operation string) (record.Reader[T], int64, error) {
	if c.state == record.StateClosed {
		return nil, 0, errors.Wrap(errors.ErrClosed, component, operation, "")
	}
	if idx < 0 {
		c.ok = false
		return nil, 0, errors.WrapContract(errors.ErrIndexOutOfRange, component, operation,
			fmt.Sprintf("validate index %d", idx))
	}
	if idx >= c.total() {
		c.ok = false
		return nil, 0, errors.Wrap(errors.ErrOutOfRecords, component, operation,
			fmt.Sprintf("locate record %d", idx))
	}

	i, local, _ := c.Locate(idx)
	return c.members[i].r, local, nil
}

// Close detaches and closes every member. It is idempotent.
func (c *Reader[T]) Close() error {
	if c.state == record.StateClosed {
		return nil
	}

	var errs []error
	for _, m := range c.members {
		m.r.UnregisterIOCallback(m.cbID)
		m.r.SetOwner(nil)
		if err := m.r.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	c.members = nil
	c.sums = nil
	c.cursor = 0
	c.owner = nil
	c.state = record.StateClosed
	c.ClearIOCallbacks()

	if err := errors.Join(errs...); err != nil {
		return errors.WrapIO(err, component, "Close", "close members")
	}
	return nil
}
