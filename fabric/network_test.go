package fabric

import (
	"strconv"
	"sync"
	"testing"
	"time"
)

// newLocalMesh starts n Network instances against localhost ports, mimicking
// the teacher's helloworld/bounce examples but driven from a single test
// process instead of n separate ones.
func newLocalMesh(t *testing.T, n int, basePort int) []*Network {
	t.Helper()
	addrs := make([]string, n)
	for i := 0; i < n; i++ {
		addrs[i] = localAddr(basePort + i)
	}

	nets := make([]*Network, n)
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		nets[i] = &Network{
			NetProto: "tcp",
			Addr:     addrs[i],
			Addrs:    append([]string(nil), addrs...),
			Timeout:  5 * time.Second,
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = nets[i].Init()
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: Init: %v", i, err)
		}
	}
	t.Cleanup(func() {
		for _, nw := range nets {
			nw.Finalize()
		}
	})
	return nets
}

func localAddr(port int) string {
	return "127.0.0.1:" + strconv.Itoa(port)
}

func TestNetworkSendReceive(t *testing.T) {
	nets := newLocalMesh(t, 3, 19100)

	var wg sync.WaitGroup
	results := make([][]string, 3)
	for i := range nets {
		results[i] = make([]string, 3)
	}
	wg.Add(3)
	for rank, n := range nets {
		go func(rank int, n *Network) {
			defer wg.Done()
			for dst := 0; dst < 3; dst++ {
				if err := n.Send("hello from "+strconv.Itoa(rank), dst, 0); err != nil {
					t.Errorf("rank %d send to %d: %v", rank, dst, err)
				}
			}
			for src := 0; src < 3; src++ {
				if err := n.Receive(&results[rank][src], src, 0); err != nil {
					t.Errorf("rank %d receive from %d: %v", rank, src, err)
				}
			}
			for dst := 0; dst < 3; dst++ {
				if err := n.Wait(dst, 0); err != nil {
					t.Errorf("rank %d wait on %d: %v", rank, dst, err)
				}
			}
		}(rank, n)
	}
	wg.Wait()

	for rank := range results {
		for src := 0; src < 3; src++ {
			want := "hello from " + strconv.Itoa(src)
			if results[rank][src] != want {
				t.Errorf("rank %d from %d: got %q want %q", rank, src, results[rank][src], want)
			}
		}
	}
}

func TestNetworkBarrier(t *testing.T) {
	nets := newLocalMesh(t, 4, 19200)
	var wg sync.WaitGroup
	wg.Add(len(nets))
	for _, n := range nets {
		go func(n *Network) {
			defer wg.Done()
			if err := n.Barrier(); err != nil {
				t.Errorf("barrier: %v", err)
			}
		}(n)
	}
	wg.Wait()
}

func TestNetworkAllgatherBcast(t *testing.T) {
	nets := newLocalMesh(t, 3, 19300)
	var wg sync.WaitGroup
	gathered := make([][]int, 3)
	broadcast := make([]int, 3)
	wg.Add(3)
	for rank, n := range nets {
		go func(rank int, n *Network) {
			defer wg.Done()
			vals, err := Allgather[int](n, rank*10)
			if err != nil {
				t.Errorf("rank %d allgather: %v", rank, err)
				return
			}
			gathered[rank] = vals

			got, err := Bcast[int](n, 42, 0)
			if err != nil {
				t.Errorf("rank %d bcast: %v", rank, err)
				return
			}
			broadcast[rank] = got
		}(rank, n)
	}
	wg.Wait()

	want := []int{0, 10, 20}
	for rank, got := range gathered {
		for i, v := range got {
			if v != want[i] {
				t.Errorf("rank %d allgather[%d] = %d, want %d", rank, i, v, want[i])
			}
		}
	}
	for rank, v := range broadcast {
		if v != 42 {
			t.Errorf("rank %d bcast = %d, want 42", rank, v)
		}
	}
}

func TestNetworkCommSplit(t *testing.T) {
	nets := newLocalMesh(t, 4, 19400)
	// split into two pairs: {0,1} and {2,3}
	groups := [][]int{{0, 1}, {2, 3}}

	var wg sync.WaitGroup
	wg.Add(len(nets))
	sums := make([]int, 4)
	for rank, n := range nets {
		go func(rank int, n *Network) {
			defer wg.Done()
			var group []int
			for _, g := range groups {
				for _, r := range g {
					if r == rank {
						group = g
					}
				}
			}
			sub, err := n.CommSplit(group)
			if err != nil {
				t.Errorf("rank %d commsplit: %v", rank, err)
				return
			}
			vals, err := Allgather[int](sub, rank)
			if err != nil {
				t.Errorf("rank %d sub allgather: %v", rank, err)
				return
			}
			total := 0
			for _, v := range vals {
				total += v
			}
			sums[rank] = total
		}(rank, n)
	}
	wg.Wait()

	if sums[0] != 1 || sums[1] != 1 {
		t.Errorf("group {0,1} sums = %v, want 1,1", sums[:2])
	}
	if sums[2] != 5 || sums[3] != 5 {
		t.Errorf("group {2,3} sums = %v, want 5,5", sums[2:])
	}
}
