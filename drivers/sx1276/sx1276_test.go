package sx1276

import (
	"errors"
	"testing"

	"radiocode-go/drivers/sx127x"
	"radiocode-go/x/regsim"

	"tinygo.org/x/drivers/lora"
)

// Compile-time checks.
var (
	_ RegisterAccess     = (*recorder)(nil)
	_ CommonConfigurator = (*recorder)(nil)
	_ RegisterAccess     = (*sx127x.Device)(nil)
	_ CommonConfigurator = (*sx127x.Device)(nil)
)

type commonCall struct {
	bw, sf, cr uint8
	freq       uint32
	sync       uint8
}

// recorder logs every call in order and fails on request.
type recorder struct {
	writes    []RegisterWrite
	common    []commonCall
	commonErr error
	failAddr  int // -1 => never
	failErr   error
	diagMsgs  []string
	diagFreqs []uint32
}

func newRecorder() *recorder { return &recorder{failAddr: -1} }

func (r *recorder) WriteRegister(addr, value uint8) error {
	if int(addr) == r.failAddr {
		return r.failErr
	}
	r.writes = append(r.writes, reg(addr, value))
	return nil
}

func (r *recorder) SetFieldValue(addr, value, hi, lo uint8) error {
	if int(addr) == r.failAddr {
		return r.failErr
	}
	r.writes = append(r.writes, field(addr, value, hi, lo))
	return nil
}

func (r *recorder) Configure(bw, sf, cr uint8, freq uint32, sync uint8) error {
	r.common = append(r.common, commonCall{bw, sf, cr, freq, sync})
	return r.commonErr
}

func (r *recorder) diag(msg string, freq uint32) {
	r.diagMsgs = append(r.diagMsgs, msg)
	r.diagFreqs = append(r.diagFreqs, freq)
}

func newTestDevice() (*Device, *recorder) {
	rec := newRecorder()
	return New(rec, rec, Config{Diag: rec.diag}), rec
}

var (
	allBW = []Bandwidth{BW62k5, BW125k, BW250k, BW500k}
	allSF = []SpreadingFactor{SF6, SF7, SF8, SF9, SF10, SF11, SF12}
	allCR = []CodingRate{CR4_5, CR4_6, CR4_7, CR4_8}
)

func isSupportedBW(v int) bool {
	for _, bw := range allBW {
		if int(bw) == v {
			return true
		}
	}
	return false
}

func TestConfigure_InvalidBandwidth_NoWrites(t *testing.T) {
	for v := 0; v < 256; v++ {
		if isSupportedBW(v) {
			continue
		}
		d, rec := newTestDevice()
		before := d.Profile()
		if err := d.Configure(Bandwidth(v), SF7, CR4_5, 915_000_000, 0x12); !errors.Is(err, ErrInvalidBandwidth) {
			t.Fatalf("bw=%d: err=%v, want ErrInvalidBandwidth", v, err)
		}
		if len(rec.writes) != 0 || len(rec.common) != 0 {
			t.Fatalf("bw=%d: unexpected bus activity %v %v", v, rec.writes, rec.common)
		}
		if d.Profile() != before {
			t.Fatalf("bw=%d: profile changed", v)
		}
	}
}

func TestConfigure_ValidationOrder(t *testing.T) {
	const badBW = Bandwidth(lora.Bandwidth_7_8)
	const badSF = SpreadingFactor(lora.SpreadingFactor5)
	const badCR = CodingRate(0)
	const badF = 100_000_000

	cases := []struct {
		name string
		bw   Bandwidth
		sf   SpreadingFactor
		cr   CodingRate
		freq uint32
		want error
	}{
		{"all invalid", badBW, badSF, badCR, badF, ErrInvalidBandwidth},
		{"bw and sf invalid", badBW, badSF, CR4_5, 915_000_000, ErrInvalidBandwidth},
		{"sf cr freq invalid", BW125k, badSF, badCR, badF, ErrInvalidSpreadingFactor},
		{"sf 13", BW125k, SpreadingFactor(13), CR4_5, 915_000_000, ErrInvalidSpreadingFactor},
		{"cr and freq invalid", BW125k, SF7, badCR, badF, ErrInvalidCodingRate},
		{"cr 4/9", BW125k, SF7, CodingRate(5), 915_000_000, ErrInvalidCodingRate},
		{"freq invalid", BW125k, SF7, CR4_5, badF, ErrInvalidFrequency},
	}
	for _, c := range cases {
		d, rec := newTestDevice()
		if err := d.Configure(c.bw, c.sf, c.cr, c.freq, 0); !errors.Is(err, c.want) {
			t.Fatalf("%s: err=%v, want %v", c.name, err, c.want)
		}
		if len(rec.writes) != 0 || len(rec.common) != 0 {
			t.Fatalf("%s: unexpected bus activity", c.name)
		}
		// Diagnostic only for the frequency failure.
		wantDiag := 0
		if c.want == ErrInvalidFrequency {
			wantDiag = 1
		}
		if len(rec.diagFreqs) != wantDiag {
			t.Fatalf("%s: diag records=%d, want %d", c.name, len(rec.diagFreqs), wantDiag)
		}
	}
}

func TestConfigure_InvalidFrequency_OneDiagnostic(t *testing.T) {
	for _, f := range []uint32{1, 136_999_999, 1_020_000_001, 2_400_000_000, 0xFFFFFFFF} {
		d, rec := newTestDevice()
		if err := d.Configure(BW125k, SF7, CR4_5, f, 0); !errors.Is(err, ErrInvalidFrequency) {
			t.Fatalf("f=%d: err=%v, want ErrInvalidFrequency", f, err)
		}
		if len(rec.diagFreqs) != 1 || rec.diagFreqs[0] != f {
			t.Fatalf("f=%d: diag=%v, want exactly [%d]", f, rec.diagFreqs, f)
		}
		if len(rec.writes) != 0 || len(rec.common) != 0 {
			t.Fatalf("f=%d: unexpected bus activity", f)
		}
	}
	for _, f := range []uint32{FreqMinHz, FreqMaxHz} {
		d, rec := newTestDevice()
		if err := d.Configure(BW125k, SF7, CR4_5, f, 0); err != nil {
			t.Fatalf("boundary f=%d: %v", f, err)
		}
		if len(rec.diagFreqs) != 0 {
			t.Fatalf("boundary f=%d: unexpected diag", f)
		}
	}
}

func TestConfigure_ZeroSentinelsReuseCommitted(t *testing.T) {
	d, rec := newTestDevice()
	if err := d.Configure(BW250k, SF9, CR4_7, 868_100_000, 0x34); err != nil {
		t.Fatalf("first: %v", err)
	}
	if err := d.Configure(BW125k, SF10, CR4_5, 0, 0); err != nil {
		t.Fatalf("second: %v", err)
	}
	p := d.Profile()
	if p.Frequency != 868_100_000 || p.SyncWord != 0x34 {
		t.Fatalf("profile=%+v, want reused freq and sync", p)
	}
	last := rec.common[len(rec.common)-1]
	if last.freq != 868_100_000 || last.sync != 0x34 {
		t.Fatalf("common got %+v, want resolved freq and sync", last)
	}
}

func TestConfigure_ZeroSentinelsBeforeFirstConfigure(t *testing.T) {
	d, rec := newTestDevice()
	if err := d.Configure(BW125k, SF7, CR4_5, 0, 0); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	def := DefaultProfile()
	if rec.common[0].freq != def.Frequency || rec.common[0].sync != def.SyncWord {
		t.Fatalf("common got %+v, want defaults", rec.common[0])
	}
}

func TestNew_PartialProfileDefaultsPerField(t *testing.T) {
	rec := newRecorder()
	d := New(rec, rec, Config{Profile: Profile{Bandwidth: BW500k, ImplicitHeader: true}, Diag: rec.diag})

	def := DefaultProfile()
	want := def
	want.Bandwidth = BW500k
	want.ImplicitHeader = true
	if got := d.Profile(); got != want {
		t.Fatalf("profile=%+v, want %+v", got, want)
	}
	if !d.ImplicitHeader() {
		t.Fatal("header mode from the profile was dropped")
	}

	if err := d.Configure(BW125k, SF7, CR4_5, 0, 0); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if rec.common[0].sync != def.SyncWord || rec.common[0].freq != def.Frequency {
		t.Fatalf("common got %+v, want default sync and freq", rec.common[0])
	}
}

func TestConfigure_CommonReceivesChipCodes(t *testing.T) {
	d, rec := newTestDevice()
	if err := d.Configure(BW500k, SF12, CR4_8, 915_000_000, 0x12); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	want := commonCall{bw: 0x90, sf: 0xC0, cr: 0x08, freq: 915_000_000, sync: 0x12}
	if len(rec.common) != 1 || rec.common[0] != want {
		t.Fatalf("common=%+v, want %+v", rec.common, want)
	}
}

func TestConfigure_FullSequence(t *testing.T) {
	d, rec := newTestDevice()
	if err := d.Configure(BW125k, SF11, CR4_5, 915_000_000, 0x12); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	want := []RegisterWrite{
		reg(sx127x.RegOcp, 0x32),
		reg(sx127x.RegPaDac, 0x84),
		field(sx127x.RegModemConfig3, 1, 2, 2),
		field(sx127x.RegModemConfig3, 1, 0, 0),
		reg(sx127x.RegModemConfig1, 0x72),
		reg(0x36, 0x03),
	}
	assertWrites(t, rec.writes, want)
}

func TestConfigure_LowDataRateOptimizeMatrix(t *testing.T) {
	for _, bw := range allBW {
		for _, sf := range allSF {
			d, rec := newTestDevice()
			if err := d.Configure(bw, sf, CR4_5, 915_000_000, 0); err != nil {
				t.Fatalf("bw=%s sf=%d: %v", bw, sf, err)
			}
			want := uint8(0)
			if bw == BW125k && (sf == SF11 || sf == SF12) {
				want = 1
			}
			n := 0
			for _, w := range rec.writes {
				if w.Field && w.Addr == sx127x.RegModemConfig3 && w.Hi == 0 && w.Lo == 0 {
					n++
					if w.Value != want {
						t.Fatalf("bw=%s sf=%d: ldro=%d, want %d", bw, sf, w.Value, want)
					}
				}
			}
			if n != 1 {
				t.Fatalf("bw=%s sf=%d: ldro written %d times, want 1", bw, sf, n)
			}
		}
	}
}

func TestConfigure_ErrataByBandwidth(t *testing.T) {
	for _, bw := range allBW {
		d, rec := newTestDevice()
		if err := d.Configure(bw, SF7, CR4_5, 915_000_000, 0); err != nil {
			t.Fatalf("bw=%s: %v", bw, err)
		}
		var got36 []uint8
		var got3A []uint8
		for _, w := range rec.writes {
			switch w.Addr {
			case 0x36:
				got36 = append(got36, w.Value)
			case 0x3A:
				got3A = append(got3A, w.Value)
			}
		}
		if bw == BW500k {
			if len(got36) != 1 || got36[0] != 0x02 || len(got3A) != 1 || got3A[0] != 0x64 {
				t.Fatalf("500 kHz: 0x36=%v 0x3A=%v", got36, got3A)
			}
			continue
		}
		if len(got36) != 1 || got36[0] != 0x03 || len(got3A) != 0 {
			t.Fatalf("bw=%s: 0x36=%v 0x3A=%v", bw, got36, got3A)
		}
	}
}

func TestConfigure_ModemConfig1(t *testing.T) {
	cases := []struct {
		bw       Bandwidth
		cr       CodingRate
		implicit bool
		want     uint8
	}{
		{BW62k5, CR4_5, false, 0x62},
		{BW125k, CR4_6, false, 0x74},
		{BW250k, CR4_7, true, 0x87},
		{BW500k, CR4_8, true, 0x99},
	}
	for _, c := range cases {
		d, rec := newTestDevice()
		d.SetImplicitHeader(c.implicit)
		if err := d.Configure(c.bw, SF7, c.cr, 915_000_000, 0); err != nil {
			t.Fatalf("%+v: %v", c, err)
		}
		var got []uint8
		for _, w := range rec.writes {
			if w.Addr == sx127x.RegModemConfig1 {
				got = append(got, w.Value)
			}
		}
		if len(got) != 1 || got[0] != c.want {
			t.Fatalf("%+v: ModemConfig1=%v, want 0x%02X", c, got, c.want)
		}
		if d.Profile().ImplicitHeader != c.implicit {
			t.Fatalf("%+v: profile header mode not committed", c)
		}
	}
}

func TestConfigure_CommonFailure_NoWritesNoCommit(t *testing.T) {
	d, rec := newTestDevice()
	if err := d.Configure(BW250k, SF8, CR4_6, 868_100_000, 0x34); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := d.Profile()
	rec.writes = nil

	busErr := errors.New("spi: nak")
	rec.commonErr = busErr
	if err := d.Configure(BW500k, SF12, CR4_8, 915_000_000, 0x12); err != busErr {
		t.Fatalf("err=%v, want the common error verbatim", err)
	}
	if len(rec.writes) != 0 {
		t.Fatalf("writes after common failure: %v", rec.writes)
	}
	if d.Profile() != before {
		t.Fatalf("profile=%+v, want %+v", d.Profile(), before)
	}
}

func TestConfigure_MidSequenceFailure_NoCommit(t *testing.T) {
	for _, addr := range []uint8{sx127x.RegOcp, sx127x.RegPaDac, sx127x.RegModemConfig3, sx127x.RegModemConfig1, 0x36} {
		d, rec := newTestDevice()
		before := d.Profile()
		busErr := errors.New("write failed")
		rec.failAddr = int(addr)
		rec.failErr = busErr

		if err := d.Configure(BW500k, SF9, CR4_7, 868_100_000, 0x34); err != busErr {
			t.Fatalf("fail at 0x%02X: err=%v", addr, err)
		}
		if d.Profile() != before {
			t.Fatalf("fail at 0x%02X: profile committed", addr)
		}
		for _, w := range rec.writes {
			if w.Addr == 0x3A {
				t.Fatalf("fail at 0x%02X: sequence continued past failure", addr)
			}
		}
	}
}

func TestConfigure_EntryPointsEquivalent(t *testing.T) {
	for _, bw := range allBW {
		for _, sf := range allSF {
			for _, cr := range allCR {
				d1, r1 := newTestDevice()
				d2, r2 := newTestDevice()
				e1 := d1.Configure(bw, sf, cr, 433_000_000, 0x2B)
				e2 := ConfigureDevice(d2, bw, sf, cr, 433_000_000, 0x2B)
				if e1 != e2 {
					t.Fatalf("errors differ: %v vs %v", e1, e2)
				}
				assertWrites(t, r2.writes, r1.writes)
				if d1.Profile() != d2.Profile() {
					t.Fatalf("profiles differ: %+v vs %+v", d1.Profile(), d2.Profile())
				}
			}
		}
	}
}

func TestConfigure_OverSX127x(t *testing.T) {
	bank := regsim.New(map[uint8]uint8{sx127x.RegModemConfig3: 0x08})
	d := NewSX127x(sx127x.New(bank, nil, sx127x.DefaultConfig()), Config{Diag: func(string, uint32) {}})

	if err := d.Configure(BW125k, SF12, CR4_5, 915_000_000, 0x34); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	checks := map[uint8]uint8{
		sx127x.RegOcp:          0x32,
		sx127x.RegPaDac:        0x84,
		sx127x.RegModemConfig3: 0x0D, // bit3 kept, AGC on, LDRO on
		sx127x.RegModemConfig1: 0x72,
		sx127x.RegSyncWord:     0x34,
		0x36:                   0x03,
	}
	for addr, want := range checks {
		if got := bank.Get(addr); got != want {
			t.Errorf("reg 0x%02X = 0x%02X, want 0x%02X", addr, got, want)
		}
	}

	// Switching away from 125 kHz/SF12 must clear LDRO.
	if err := d.Configure(BW500k, SF7, CR4_5, 0, 0); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	if got := bank.Get(sx127x.RegModemConfig3); got != 0x0C {
		t.Fatalf("ModemConfig3 = 0x%02X, want 0x0C", got)
	}
	if bank.Get(0x36) != 0x02 || bank.Get(0x3A) != 0x64 {
		t.Fatalf("errata registers not applied")
	}
}

func TestDetect(t *testing.T) {
	d, _ := newTestDevice()
	if err := d.Detect(); err != nil {
		t.Fatalf("Detect without version support: %v", err)
	}

	bank := regsim.New(map[uint8]uint8{sx127x.RegVersion: sx127x.VersionSX127x})
	if err := NewSX127x(sx127x.New(bank, nil, sx127x.DefaultConfig()), Config{}).Detect(); err != nil {
		t.Fatalf("Detect: %v", err)
	}
	blank := regsim.New(nil)
	if err := NewSX127x(sx127x.New(blank, nil, sx127x.DefaultConfig()), Config{}).Detect(); !errors.Is(err, sx127x.ErrNotDetected) {
		t.Fatalf("Detect on blank bank: %v", err)
	}
}

func TestSetDiag(t *testing.T) {
	d, rec := newTestDevice()
	var got []uint32
	d.SetDiag(func(_ string, f uint32) { got = append(got, f) })
	_ = d.Configure(BW125k, SF7, CR4_5, 100, 0)
	if len(got) != 1 || got[0] != 100 || len(rec.diagMsgs) != 0 {
		t.Fatalf("replacement sink got %v, original %v", got, rec.diagMsgs)
	}
}

func TestParse(t *testing.T) {
	for _, bw := range allBW {
		got, ok := ParseBandwidth(bw.String())
		if !ok || got != bw {
			t.Fatalf("ParseBandwidth(%q)=%v,%v", bw.String(), got, ok)
		}
	}
	if _, ok := ParseBandwidth("7.8"); ok {
		t.Fatal("7.8 kHz must not parse")
	}
	for _, cr := range allCR {
		got, ok := ParseCodingRate(cr.String())
		if !ok || got != cr {
			t.Fatalf("ParseCodingRate(%q)=%v,%v", cr.String(), got, ok)
		}
	}
}

func assertWrites(t *testing.T, got, want []RegisterWrite) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("writes=%+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("write[%d]=%+v, want %+v", i, got[i], want[i])
		}
	}
}
