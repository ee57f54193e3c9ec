package types_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/okian/droprelay/internal/domain/model"
	types "github.com/okian/droprelay/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDrop(t *testing.T) {
	Convey("Given a domain drop", t, func() {
		e, err := model.NewDropEvent("abc-123", "Big Bank", 523, "12/50", time.Now())
		So(err, ShouldBeNil)

		Convey("When converting it for the API", func() {
			d := types.DropFrom(e)
			data, err := json.Marshal(d)
			So(err, ShouldBeNil)

			Convey("Then it should expose exactly the four public fields", func() {
				var m map[string]any
				So(json.Unmarshal(data, &m), ShouldBeNil)
				So(m, ShouldResemble, map[string]any{
					"job": "abc-123", "name": "Big Bank", "ms": 523.0, "players": "12/50",
				})
			})
		})

		Convey("When converting the zero event", func() {
			d := types.DropFrom(model.DropEvent{})

			Convey("Then it should be the zero drop", func() {
				So(d, ShouldResemble, types.Drop{})
			})
		})
	})

	Convey("Given a stored drop", t, func() {
		sd := types.StoredDrop{Drop: types.Drop{Job: "j", Name: "n", MS: 1}, Timestamp: 1700000000.5}
		data, err := json.Marshal(sd)
		So(err, ShouldBeNil)

		Convey("Then the timestamp should sit beside the drop fields", func() {
			So(string(data), ShouldEqual, `{"job":"j","name":"n","ms":1,"players":"","timestamp":1700000000.5}`)
		})
	})
}
