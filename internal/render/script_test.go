package render

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/animator/internal/config"
)

func defaultOptions(t *testing.T) Options {
	t.Helper()
	c, err := config.Build(config.Overrides{TargetDir: config.Ptr("run")})
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return OptionsFromConfig(c)
}

func TestBuildScript(t *testing.T) {
	o := defaultOptions(t)
	f := Frame{Time: 12.5, Position: "run/time_000012.50.pos", Image: "run/time_000012.50.png"}

	want := `set terminal pngcairo enhanced size 800, 600 font "LiberationSans-Regular.ttf, 16"
set output "run/time_000012.50.png"
set xlabel "x [m]"
set ylabel "y [m]"
set label 1 "time =     12.50 [sec]" at graph 0.05, 0.95 left
set key box
load "run/gnuplot.conf"
plot "run/time_000012.50.pos" u 2:3:6 w p pt 7 ps 2 lc variable t "nodes"
`
	if diff := cmp.Diff(want, BuildScript(f, o, true)); diff != "" {
		t.Errorf("script mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildScript_NoConfig(t *testing.T) {
	o := defaultOptions(t)
	o.Terminal = "gif"
	o.XCol, o.YCol, o.ColorCol = 3, 4, 2
	f := Frame{Time: -1, Position: "p.pos", Image: "i.gif"}

	want := `set terminal gif enhanced size 800, 600 font "LiberationSans-Regular.ttf, 16"
set output "i.gif"
set xlabel "x [m]"
set ylabel "y [m]"
set label 1 "time =     -1.00 [sec]" at graph 0.05, 0.95 left
set key box
plot "p.pos" u 3:4:2 w p pt 7 ps 2 lc variable t "nodes"
`
	if diff := cmp.Diff(want, BuildScript(f, o, false)); diff != "" {
		t.Errorf("script mismatch (-want +got):\n%s", diff)
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		`plain`:        `"plain"`,
		`C:\run\a.png`: `"C:\\run\\a.png"`,
		`say "hi"`:     `"say \"hi\""`,
		``:             `""`,
	}
	for in, want := range tests {
		if got := quote(in); got != want {
			t.Errorf("quote(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestTimeLabel(t *testing.T) {
	if got := TimeLabel(3, ""); got != "time =      3.00" {
		t.Errorf("got %q", got)
	}
}
