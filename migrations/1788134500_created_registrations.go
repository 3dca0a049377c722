package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		users, err := app.FindCollectionByNameOrId("users")
		if err != nil {
			return err
		}
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("registrations")

		collection.Fields.Add(
			&core.RelationField{
				Name:          "user",
				Required:      true,
				CollectionId:  users.Id,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			&core.RelationField{
				Name:          "event",
				Required:      true,
				CollectionId:  events.Id,
				MaxSelect:     1,
				CascadeDelete: true,
			},
			// Empty value means pending.
			&core.SelectField{
				Name:      "approval",
				MaxSelect: 1,
				Values:    []string{"approved", "rejected"},
			},
			&core.BoolField{Name: "checked_in"},
			&core.DateField{Name: "checked_in_at"},
			&core.TextField{Name: "ref_code"},
			&core.AutodateField{Name: "created", OnCreate: true},
		)

		// At most one registration per (user, event); concurrent creates
		// resolve to one winner and one constraint violation.
		collection.AddIndex("idx_registrations_user_event", true, "`user`, `event`", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("registrations")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
