package snowflake

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sdming/gosnow"
)

type Snowflaker interface {
	Next() (uint64, error)
}

var Epoch = time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
var DefaultSnowflaker Snowflaker

func init() {
	gosnow.Since = Epoch.UnixNano() / 1000000
	var err error
	DefaultSnowflaker, err = gosnow.Default()
	if err != nil {
		panic(err)
	}
}

// A Snowflake is a roughly time-ordered process-unique id. Sessions use it
// to tag connections independently of member identity.
type Snowflake uint64

func New() (Snowflake, error) {
	snowflake, err := DefaultSnowflaker.Next()
	if err != nil {
		return Snowflake(0), err
	}
	return Snowflake(snowflake), nil
}

func (s Snowflake) String() string {
	if s == 0 {
		return ""
	}
	return fmt.Sprintf("%013s", strconv.FormatUint(uint64(s), 36))
}

func (s *Snowflake) FromString(str string) error {
	if str == "" {
		*s = 0
		return nil
	}
	i, err := strconv.ParseUint(str, 36, 64)
	if err != nil {
		return err
	}
	*s = Snowflake(i)
	return nil
}

func (s Snowflake) Time() time.Time {
	timestampMillis := uint64(s) >> (gosnow.WorkerIdBits + gosnow.SequenceBits)
	return Epoch.Add(time.Duration(timestampMillis) * time.Millisecond)
}

func (s Snowflake) IsZero() bool { return s == 0 }
