package fabric

import (
	"flag"
	"fmt"
	"strings"
	"time"
)

// Command-line flags mirroring the teacher package's -mpi-* flags, renamed
// to the -fabric-* namespace used by this module's cmd/ binaries.
var (
	FlagAddr        string
	FlagAllAddrs    AddrsFlag
	FlagInitTimeout DurationFlag
	FlagProtocol    string
	FlagPassword    string
)

// AddrsFlag implements flag.Value for a comma-separated address list.
type AddrsFlag []string

func (m *AddrsFlag) String() string { return fmt.Sprint(*m) }

func (m *AddrsFlag) Set(value string) error {
	*m = append(*m, strings.Split(value, ",")...)
	return nil
}

// DurationFlag implements flag.Value over a time.Duration.
type DurationFlag time.Duration

func (m *DurationFlag) String() string { return time.Duration(*m).String() }

func (m *DurationFlag) Set(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*m = DurationFlag(d)
	return nil
}

func init() {
	flag.StringVar(&FlagAddr, "fabric-addr", "", "address of the local running process")
	flag.Var(&FlagAllAddrs, "fabric-alladdr", "addresses of all processes, comma separated")
	flag.Var(&FlagInitTimeout, "fabric-inittimeout", "duration to wait before timeout in Init")
	flag.StringVar(&FlagProtocol, "fabric-protocol", "tcp", "network protocol to use")
	flag.StringVar(&FlagPassword, "fabric-password", "", "shared value to guard against cross-talk between runs")
}

// NewNetworkFromFlags builds a Network whose fields are all taken from the
// parsed -fabric-* flags.
func NewNetworkFromFlags() *Network {
	return &Network{
		NetProto: FlagProtocol,
		Addr:     FlagAddr,
		Addrs:    append([]string(nil), FlagAllAddrs...),
		Timeout:  time.Duration(FlagInitTimeout),
		Password: FlagPassword,
	}
}
