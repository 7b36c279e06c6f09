package jobs

import (
	"testing"

	"github.com/darionyaphet/nebula-storage/internal/balance"
)

func TestParseParasSingleElementIsSpaceName(t *testing.T) {
	p, err := ParseParas([]string{"myspace"})
	if err != nil {
		t.Fatalf("ParseParas: %v", err)
	}
	if p.SpaceName != "myspace" || len(p.LostHosts) != 0 {
		t.Errorf("got %+v", p)
	}
}

func TestParseParasTwoElementsIsHostsThenSpaceName(t *testing.T) {
	p, err := ParseParas([]string{"10.0.0.1:9779,10.0.0.2:9779", "myspace"})
	if err != nil {
		t.Fatalf("ParseParas: %v", err)
	}
	if p.SpaceName != "myspace" {
		t.Errorf("got space name %q, want myspace", p.SpaceName)
	}
	want := []balance.HostAddr{{IP: "10.0.0.1", Port: 9779}, {IP: "10.0.0.2", Port: 9779}}
	if len(p.LostHosts) != len(want) {
		t.Fatalf("got %+v, want %+v", p.LostHosts, want)
	}
	for i := range want {
		if p.LostHosts[i] != want[i] {
			t.Errorf("host %d = %+v, want %+v", i, p.LostHosts[i], want[i])
		}
	}
}

func TestParseParasEmptySpaceNameIsInvalid(t *testing.T) {
	_, err := ParseParas([]string{"  "})
	if balance.CodeOf(err) != balance.CodeInvalidParm {
		t.Fatalf("got %v, want E_INVALID_PARM", err)
	}
}

func TestParseParasWrongArityIsInvalid(t *testing.T) {
	_, err := ParseParas([]string{"a", "b", "c"})
	if balance.CodeOf(err) != balance.CodeInvalidParm {
		t.Fatalf("got %v, want E_INVALID_PARM", err)
	}
	_, err = ParseParas(nil)
	if balance.CodeOf(err) != balance.CodeInvalidParm {
		t.Fatalf("got %v, want E_INVALID_PARM for empty paras", err)
	}
}

func TestParseParasMalformedHostListIsInvalid(t *testing.T) {
	_, err := ParseParas([]string{"not-a-host", "myspace"})
	if balance.CodeOf(err) != balance.CodeInvalidParm {
		t.Fatalf("got %v, want E_INVALID_PARM", err)
	}
}

func TestParseHostAddrValid(t *testing.T) {
	h, err := ParseHostAddr("10.0.0.1:9779")
	if err != nil {
		t.Fatalf("ParseHostAddr: %v", err)
	}
	if h.IP != "10.0.0.1" || h.Port != 9779 {
		t.Errorf("got %+v", h)
	}
}

func TestParseHostAddrRejectsMissingPort(t *testing.T) {
	cases := []string{"10.0.0.1", "10.0.0.1:", ":9779", "10.0.0.1:abc"}
	for _, c := range cases {
		if _, err := ParseHostAddr(c); balance.CodeOf(err) != balance.CodeInvalidParm {
			t.Errorf("ParseHostAddr(%q): got %v, want E_INVALID_PARM", c, err)
		}
	}
}
