package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.TextField{Name: "title", Required: true},
			&core.EditorField{Name: "description"},
			&core.DateField{Name: "start_at", Required: true},
			&core.TextField{Name: "location"},
			&core.TextField{Name: "precise_location", Hidden: true},
			&core.TextField{Name: "secret_hash", Hidden: true},
			&core.TextField{Name: "approved_message"},
			&core.TextField{Name: "rejected_message"},
			&core.TextField{Name: "price"},
			&core.SelectField{
				Name:      "status",
				MaxSelect: 1,
				Values:    []string{"publish", "unpublish"},
			},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
