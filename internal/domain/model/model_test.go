package model

import (
	"testing"

	json "github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/rgtrack/internal/domain/gpt"
)

func TestMetricJSON(t *testing.T) {
	Convey("Given a metric set with every kind", t, func() {
		ms := Metrics{
			"score":   IntMetric(1500),
			"percent": DecMetric(88.25),
			"lamp":    EnumMetric("HARD CLEAR"),
			"gauge":   GraphMetric([]float64{22, 40.5}),
		}

		Convey("When it is encoded", func() {
			b, err := json.Marshal(ms)
			So(err, ShouldBeNil)

			Convey("Then values are bare JSON scalars and arrays", func() {
				So(string(b), ShouldContainSubstring, `"score":1500`)
				So(string(b), ShouldContainSubstring, `"percent":88.25`)
				So(string(b), ShouldContainSubstring, `"lamp":"HARD CLEAR"`)
				So(string(b), ShouldContainSubstring, `"gauge":[22,40.5]`)
			})

			Convey("And decoding infers each kind", func() {
				var back Metrics
				So(json.Unmarshal(b, &back), ShouldBeNil)
				So(back["score"].Kind, ShouldEqual, gpt.Integer)
				So(back["percent"].Kind, ShouldEqual, gpt.Decimal)
				So(back["lamp"].Kind, ShouldEqual, gpt.Enum)
				So(back["gauge"].Graph, ShouldResemble, []float64{22, 40.5})
			})
		})

		Convey("When reading typed values", func() {
			n, ok := ms.Num("score")
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 1500)

			_, ok = ms.Num("lamp")
			So(ok, ShouldBeFalse)

			l, ok := ms.Enum("lamp")
			So(ok, ShouldBeTrue)
			So(l, ShouldEqual, "HARD CLEAR")
			So(ms["score"].String(), ShouldEqual, "1500")
		})

		Convey("When a null metric is decoded", func() {
			var back Metrics
			err := json.Unmarshal([]byte(`{"score":null}`), &back)

			Convey("Then it is rejected", func() {
				So(err, ShouldNotBeNil)
			})
		})

		Convey("When the set is cloned", func() {
			c := ms.Clone()
			c["score"] = IntMetric(1)

			Convey("Then the original is untouched", func() {
				So(ms["score"].Int(), ShouldEqual, 1500)
			})
		})
	})
}

func TestScoreCalculated(t *testing.T) {
	Convey("Given a score with one calculated value", t, func() {
		s := &Score{CalculatedData: map[string]float64{"VF6": 0.412}}

		Convey("Then missing algorithms are absent rather than zero", func() {
			v, ok := s.Calculated("VF6")
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, 0.412)

			_, ok = s.Calculated("BPI")
			So(ok, ShouldBeFalse)
		})
	})
}
