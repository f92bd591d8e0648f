// Package record defines the uniform streaming contract for typed record
// input and output.
//
// A Reader addresses records by a zero-based index. It keeps a cursor in
// [0, NumRecords], a good/bad state and a set of progress subscriptions that
// are notified during long operations such as counting the records of a
// sequential file. A subscription returning Abort cancels the operation,
// which then fails with errors.ErrCancelled instead of unwinding the stack.
//
// Format plugins rarely implement Reader directly. They provide a Source
// (random access decoding plus counting) and wrap it with NewIndexedReader,
// or a Sink wrapped with NewStreamWriter:
//
//	r := record.NewIndexedReader[Molecule](src)
//	defer r.Close()
//
//	var mol Molecule
//	for r.HasMoreData() {
//	    if err := r.Read(&mol); err != nil {
//	        if errors.IsDecode(err) {
//	            _ = r.SetRecordIndex(r.RecordIndex() + 1)
//	            continue
//	        }
//	        return err
//	    }
//	    // use mol
//	}
//
// State machine: a stream starts Open and ends Closed (after Close) or Failed
// (after an infrastructure error). Neither is left again. Decode failures only
// mark the most recent operation as bad; Good reports true again after the
// next successful operation.
package record
