/*
Command mdhello is a minimal connectivity check for the messaging fabric: it
initializes the fabric, finds its own rank, and exchanges a greeting with
every other rank concurrently. Grounded on the teacher's examples/helloworld.

To run on a single machine, in three different terminals:

	mdhello -fabric-addr=":5000" -fabric-alladdr=":5000,:5001,:5002"
	mdhello -fabric-addr=":5001" -fabric-alladdr=":5000,:5001,:5002"
	mdhello -fabric-addr=":5002" -fabric-alladdr=":5000,:5001,:5002"
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"sync"

	"github.com/RJMS-Benchmark/lammps/fabric"
)

func main() {
	flag.Parse()

	if err := fabric.Init(); err != nil {
		log.Fatal(err)
	}
	defer fabric.Finalize()

	rank := fabric.Rank()
	if rank == -1 {
		log.Fatal("incorrect initialization")
	}
	size := fabric.Size()
	fmt.Printf("hello from rank %d of %d\n", rank, size)

	var wg sync.WaitGroup
	wg.Add(size)
	for i := 0; i < size; i++ {
		go func(i int) {
			defer wg.Done()
			msg := fmt.Sprintf("hello from %d to %d", rank, i)
			if i == rank {
				msg = fmt.Sprintf("rank %d talking to itself", rank)
			}
			if err := fabric.Send(msg, i, 0); err != nil {
				log.Fatal(err)
			}
		}(i)
	}
	wg.Add(size)
	for i := 0; i < size; i++ {
		go func(i int) {
			defer wg.Done()
			var msg string
			if err := fabric.Receive(&msg, i, 0); err != nil {
				log.Fatal(err)
			}
			fmt.Printf("rank %d received: %q\n", rank, msg)
		}(i)
	}
	wg.Wait()
}
