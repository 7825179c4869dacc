/*
Command mdbounce measures round-trip latency and bandwidth of the messaging
fabric across a range of message sizes, the way a communication layer
should be benchmarked before it's trusted to carry ghost payloads at scale.
Grounded on the teacher's examples/bounce; must run on an even number of
ranks, which pair up even/odd.
*/
package main

import (
	"bytes"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/RJMS-Benchmark/lammps/fabric"
)

var msgLengths = []int{0, 1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7}

const nRepeats = 50

func main() {
	rand.Seed(time.Now().UnixNano())
	flag.Parse()

	if err := fabric.Init(); err != nil {
		log.Fatal("error initializing: ", err)
	}
	defer fabric.Finalize()

	rank := fabric.Rank()
	if rank < 0 {
		log.Fatal("incorrect initialization")
	}
	size := fabric.Size()
	if size%2 != 0 {
		log.Fatal("mdbounce needs an even number of ranks")
	}
	if rank == 0 {
		fmt.Println("ranks =", size)
	}
	evenRank := rank%2 == 0

	maxsize := msgLengths[len(msgLengths)-1]
	message := make([]byte, maxsize)
	for i := 0; i < maxsize/8; i++ {
		binary.LittleEndian.PutUint64(message[i*8:], uint64(rand.Int63()))
	}
	receive := make([]byte, maxsize)

	times := make([]int64, len(msgLengths))
	for i, l := range msgLengths {
		for j := 0; j < nRepeats; j++ {
			msg := message[:l]
			rcv := receive[:l]
			start := time.Now()

			if evenRank {
				if err := fabric.Send(msg, rank+1, 0); err != nil {
					log.Fatal(err)
				}
			} else {
				if err := fabric.Receive(&rcv, rank-1, 0); err != nil {
					log.Fatal(err)
				}
			}
			if evenRank {
				if err := fabric.Receive(&rcv, rank+1, 0); err != nil {
					log.Fatal(err)
				}
			} else {
				if err := fabric.Send(rcv, rank-1, 0); err != nil {
					log.Fatal(err)
				}
			}

			times[i] += time.Since(start).Nanoseconds()

			if evenRank && !bytes.Equal(msg, rcv) {
				log.Fatal("message corrupted in transit")
			}
			for k := range rcv {
				rcv[k] = 0
			}
		}
	}

	for i := range times {
		times[i] /= time.Microsecond.Nanoseconds()
		times[i] /= nRepeats
	}
	if evenRank {
		fmt.Printf("average round trip (us) between rank %d and %d: %v\n", rank, rank+1, times)
	}
}
