package db

import (
	"encoding/json"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestInventory(t *testing.T) {
	Convey("Inventory validation", t, func() {
		So(Inventory{"apples": 3, "tokens": 0}.Validate(), ShouldBeNil)
		So(Inventory(nil).Validate(), ShouldBeNil)
		So(Inventory{"apples": -1}.Validate(), ShouldNotBeNil)
		So(Inventory{"": 1}.Validate(), ShouldNotBeNil)
	})

	Convey("Clone is independent of the source", t, func() {
		src := Inventory{"apples": 3}
		cp := src.Clone()
		cp["apples"] = 9
		So(src["apples"], ShouldEqual, 3)
		So(Inventory(nil).Clone(), ShouldNotBeNil)
	})

	Convey("Inventory serialises as a plain object", t, func() {
		b, err := json.Marshal(Inventory{"apples": 2})
		So(err, ShouldBeNil)
		So(string(b), ShouldEqual, `{"apples":2}`)
	})
}

func TestNewSnapshot(t *testing.T) {
	Convey("A fresh snapshot", t, func() {
		now := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)
		s := NewSnapshot(now)

		So(s.Money, ShouldEqual, float64(DefaultMoney))
		So(s.LastVisitedStation, ShouldEqual, "Kipling")
		So(s.CurrentTime.Equal(time.Date(2024, 3, 9, 22, 0, 0, 0, time.UTC)), ShouldBeTrue)
		So(s.Inventory, ShouldBeEmpty)
		So(s.ItemCosts, ShouldBeEmpty)
	})
}
