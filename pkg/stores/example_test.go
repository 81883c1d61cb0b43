package stores_test

import (
	"context"
	"fmt"
	"log"

	"github.com/openfroyo/recordstore/pkg/stores"
)

// ExampleOpen demonstrates the insert, update, and delete lifecycle of a record.
func ExampleOpen() {
	ctx := context.Background()

	store, err := stores.Open(ctx, stores.Config{Path: stores.MemoryPath})
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if err := store.Insert(ctx, 1, "initial_value"); err != nil {
		log.Fatal(err)
	}
	if _, err := store.Update(ctx, 1, "updated_value"); err != nil {
		log.Fatal(err)
	}

	value, found, _ := store.Read(ctx, 1)
	fmt.Println(value, found)

	_, _ = store.Delete(ctx, 1)
	value, found, _ = store.Read(ctx, 1)
	fmt.Printf("%q %v\n", value, found)
	// Output:
	// updated_value true
	// "" false
}

// ExampleWithSession demonstrates a scoped store that is closed automatically.
func ExampleWithSession() {
	err := stores.WithSession(context.Background(), stores.Config{}, func(ctx context.Context, store stores.Store) error {
		if err := store.Insert(ctx, 1, "test_value"); err != nil {
			return err
		}
		rec, err := store.Get(ctx, 1)
		if err != nil {
			return err
		}
		fmt.Printf("%d=%s\n", rec.ID, rec.Value)
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}
	// Output: 1=test_value
}
