package pqds

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/pqio/internal/pqerr"
	"github.com/smallbiznis/pqio/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `DeviceName,"Feeder 12 ""North"""
Latitude,40.5
eventyear,2020
EventMonth,6
EventDay,1
EventHour,12
EventMinute,30
EventSecond,15
EventNanoSecond,0
WaveFormSensitivityCode,2
utility.region,"West"
utility.crew,17
utility.verified,true
utility.comment,needs review
waveform-data,va,vb,VA,foo
0,1.5,2.5,9,0
0.1302,1.75,NaN,9,0
0.2604,2,3,9,0
`

func TestReadParsesTagsAndRows(t *testing.T) {
	f, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	name := f.Text(KeyDeviceName)
	require.NotNil(t, name)
	assert.Equal(t, `Feeder 12 "North"`, *name)
	assert.Equal(t, 40.5, *f.Float("latitude"))

	tag, ok := f.Tag("EVENTYEAR")
	require.True(t, ok)
	assert.Equal(t, KeyEventYear, tag.Key)

	assert.Equal(t, time.Date(2020, 6, 1, 12, 30, 15, 0, time.UTC), f.Start)
	assert.Equal(t, []string{"va", "vb", "foo"}, f.Keys)

	va := f.Series["va"]
	require.Len(t, va, 3)
	assert.Equal(t, f.Start.Add(130200*time.Nanosecond), va[1].Time)
	assert.Equal(t, 1.75, va[1].Value)
	assert.True(t, math.IsNaN(f.Series["vb"][1].Value))
}

func TestReadInfersCustomFieldTypes(t *testing.T) {
	f, err := Read(strings.NewReader(sample))
	require.NoError(t, err)

	got := map[string]TagType{}
	for _, tag := range f.Custom() {
		got[tag.Key] = tag.Type
	}
	assert.Equal(t, map[string]TagType{
		"utility.region":   TagText,
		"utility.crew":     TagNumeric,
		"utility.verified": TagBoolean,
		"utility.comment":  TagText,
	}, got)
}

func TestReadRejectsMalformedFiles(t *testing.T) {
	cases := map[string]string{
		"missing header":     "DeviceName,\"a\"\n0,1\n",
		"wrong field count":  "waveform-data,va,vb\n0,1\n",
		"bad time offset":    "waveform-data,va\nabc,1\n",
		"bad sample":         "waveform-data,va\n0,x\n",
		"unterminated quote": "DeviceName,\"abc\nwaveform-data,va\n",
		"empty header":       "waveform-data,\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Read(strings.NewReader(input))
			require.Error(t, err)
			assert.ErrorIs(t, err, pqerr.ErrParse)
		})
	}
}

func TestReadDefaultsStartToEpoch(t *testing.T) {
	f, err := Read(strings.NewReader("waveform-data,ia\n1000,4\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1, 0).UTC(), f.Series["ia"][0].Time)
}

func TestStartFromDateAndTime(t *testing.T) {
	f, err := Read(strings.NewReader("EventDate,\"07/04/2019\"\nEventTime,\"08:15:00\"\nwaveform-data,va\n0,1\n"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 7, 4, 8, 15, 0, 0, time.UTC), f.Start)
}

func TestWriteThenRead(t *testing.T) {
	start := time.Date(2022, 1, 2, 3, 4, 5, 600_000_000, time.UTC)
	f := &File{
		Tags:  append([]Tag{TextTag(KeyAssetName, "Line, 7"), NumericTag(KeyNominalFrequency, 60)}, TimingTags(start)...),
		Start: start,
		Keys:  []string{"va", "ia"},
		Series: map[string]series.Series{
			"va": {{Time: start, Value: 1}, {Time: start.Add(time.Millisecond), Value: 2}},
			"ia": {{Time: start.Add(time.Millisecond), Value: -3.25}},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	assert.Contains(t, buf.String(), "AssetName,\"Line, 7\"\n")
	assert.Contains(t, buf.String(), "waveform-data,va,ia\n0,1,NaN\n1,2,-3.25\n")

	back, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, start, back.Start)
	assert.Equal(t, "Line, 7", *back.Text(KeyAssetName))
	require.Len(t, back.Series["ia"], 2)
	assert.True(t, math.IsNaN(back.Series["ia"][0].Value))
	assert.Equal(t, start.Add(time.Millisecond), back.Series["va"][1].Time)
}

func TestWriteFlattensMultiLineText(t *testing.T) {
	start := time.Date(2022, 1, 2, 0, 0, 0, 0, time.UTC)
	f := &File{
		Tags: []Tag{
			TextTag("ops.note", "breaker tripped\r\nreclosed \"late\"\nsee log"),
			NumericTag(KeyLatitude, 40.25),
		},
		Start:  start,
		Keys:   []string{"va"},
		Series: map[string]series.Series{"va": {{Time: start, Value: 1}}},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	assert.Contains(t, buf.String(), "ops.note,\"breaker tripped reclosed \"\"late\"\" see log\"\nLatitude,40.25\n")

	back, err := Read(&buf)
	require.NoError(t, err)
	note, ok := back.Tag("ops.note")
	require.True(t, ok)
	assert.Equal(t, `breaker tripped reclosed "late" see log`, note.Value)
	require.NotNil(t, back.Float(KeyLatitude))
	assert.Equal(t, 40.25, *back.Float(KeyLatitude))
	assert.Len(t, back.Series["va"], 1)
}

func TestWriteRowsRelativeToOrigin(t *testing.T) {
	origin := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &File{
		Start:  origin.Add(time.Hour),
		Origin: origin,
		Keys:   []string{"f"},
		Series: map[string]series.Series{"f": {{Time: origin.Add(2 * time.Millisecond), Value: 60}}},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, f))
	assert.Equal(t, "waveform-data,f\n2,60\n", buf.String())
}

func TestAppendLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "export.log")
	at := time.Date(2023, 11, 5, 9, 7, 3, 0, time.UTC)
	tags := []Tag{TextTag(KeyDeviceName, "M1"), EnumTag(KeyWaveFormSensitivityCode, 1)}

	require.NoError(t, AppendLog(path, at, "guid-1", tags, []string{"va", "vb"}))
	require.NoError(t, AppendLog(path, at, "guid-2", tags, []string{"ia"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `"5/11/2023 09:07:03",guid-1
DeviceName,"M1"
WaveFormSensitivityCode,1
waveform-data,va,vb
---------------------------------------------
"5/11/2023 09:07:03",guid-2
DeviceName,"M1"
WaveFormSensitivityCode,1
waveform-data,ia
`
	assert.Equal(t, want, string(raw))
}

func TestTagRendering(t *testing.T) {
	assert.Equal(t, `EventID,"a ""b"""`, TextTag(KeyEventID, `a "b"`).Line())
	assert.Equal(t, "Latitude,40.25", NumericTag(KeyLatitude, 40.25).Line())
	assert.Equal(t, "x.flag,false", BoolTag("x.flag", false).Line())
	assert.Equal(t, "EventTypeCode,3", EnumTag(KeyEventType, 3).Line())
	assert.Equal(t, `AssetName,"a b c"`, TextTag(KeyAssetName, "a\nb\rc").Line())

	d, n, ok := TextTag("ops.owner", "x").Domain()
	assert.True(t, ok)
	assert.Equal(t, "ops", d)
	assert.Equal(t, "owner", n)
	_, _, ok = TextTag("owner.", "x").Domain()
	assert.False(t, ok)
}
