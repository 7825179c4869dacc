// Package fabric implements an MPI-like point-to-point and collective
// messaging layer for Go. It does not follow the MPI standard exactly; where
// this package's documentation disagrees with the standard, this package's
// documentation is authoritative.
//
// A program using fabric begins with a call to Init() and ends with a call
// to Finalize(). Init determines the size of the run and assigns each
// process a unique rank 0 <= rank < Size(). Programs communicate with Send,
// Receive, and Wait, and with the collectives Allgather, Bcast, Barrier, and
// Sendrecv. CommSplit partitions the world into a sub-fabric over a subset
// of ranks, used by callers that need node-local or group-local
// synchronization without touching the rest of the run.
//
// Register installs the concrete Fabric implementation; it should be called
// once, early in program initialization. The default implementation, if
// none is registered, is Network, built on the net package and
// encoding/gob.
package fabric

import "fmt"

var fab Fabric = &Network{}

// Register sets the Fabric implementation used by the package-level
// functions. Register should be called at most once, before Init.
func Register(f Fabric) {
	fab = f
}

// Init initializes the messaging fabric. Init must be called before any
// other function in this package, and only once per process.
func Init() error {
	return fab.Init()
}

// Finalize releases the resources held by the fabric. No further calls may
// be made after Finalize.
func Finalize() {
	fab.Finalize()
}

// Rank returns this process's rank. If the fabric has not been initialized,
// Rank returns -1.
func Rank() int {
	return fab.Rank()
}

// Size returns the number of processes in the run, or 0 if uninitialized.
func Size() int {
	return fab.Size()
}

// Send transmits data to destination under tag. Send may be called
// concurrently from multiple goroutines, but {destination, tag} pairs must
// be unique among concurrent outstanding sends.
func Send(data interface{}, destination, tag int) error {
	return fab.Send(data, destination, tag)
}

// Wait blocks until destination has acknowledged receipt of the message
// sent under tag, then frees the pair for reuse.
func Wait(destination, tag int) error {
	return fab.Wait(destination, tag)
}

// Receive blocks until a message tagged tag arrives from source and decodes
// it into data.
func Receive(data interface{}, source, tag int) error {
	return fab.Receive(data, source, tag)
}

// Sendrecv sends to dest and receives from source, which may be different
// ranks. It is
// used for the length-prefixed variable-payload exchanges of the exchange
// and borders engines: callers first Sendrecv the record count, then
// Sendrecv the payload sized to that count.
func Sendrecv(sendData interface{}, dest, sendTag int, recvData interface{}, source, recvTag int) error {
	return fab.Sendrecv(sendData, dest, sendTag, recvData, source, recvTag)
}

// Barrier blocks until every process in the fabric has called Barrier.
func Barrier() error {
	return fab.Barrier()
}

// CommSplit partitions the fabric into a sub-fabric over ranks. Every
// process that intends to participate in the sub-fabric must supply the
// same ranks list, in the same order; the returned Fabric renumbers ranks
// 0..len(ranks)-1 in that order.
func CommSplit(ranks []int) (Fabric, error) {
	return fab.CommSplit(ranks)
}

// Fabric is the set of primitives a messaging backend must provide.
// Implementations are free to panic instead of returning an error, per the
// "MPI implementations may choose not to handle some errors" convention
// this package inherits from the standard it loosely follows.
type Fabric interface {
	Init() error
	Finalize()
	Rank() int
	Size() int
	Send(data interface{}, destination, tag int) error
	Wait(destination, tag int) error
	Receive(data interface{}, source, tag int) error
	Sendrecv(sendData interface{}, dest, sendTag int, recvData interface{}, source, recvTag int) error
	Barrier() error
	CommSplit(ranks []int) (Fabric, error)
}

// TagExists indicates a concurrent send or receive is already outstanding
// between a pair of ranks under the given tag.
type TagExists struct {
	Tag int
}

func (t TagExists) Error() string {
	return fmt.Sprintf("fabric: tag %v already in use", t.Tag)
}
