// Package nosqlite stores schema-free documents in SQLite tables whose
// columns grow to fit whatever fields are inserted.
//
// A Client either embeds the storage engine or talks to a nosqlited
// server; the API is the same:
//
//	client, _ := nosqlite.New(nosqlite.WithDataDir("./data"))
//	// or: nosqlite.New(nosqlite.WithServer("http://localhost:8080"), nosqlite.WithAPIKey(key))
//	defer client.Close()
//
//	users := client.Collection("app.db", "users")
//	_ = users.Insert(ctx, nosqlite.Document{"name": "ann", "age": 31})
//	_ = users.Insert(ctx, nosqlite.Document{"name": "bob", "tags": []string{"admin"}})
//
//	for doc, err := range users.Find(ctx, nosqlite.NewQuery().Eq("name", "ann")) {
//	    ...
//	}
//
// Integers, floats, strings and nil are stored natively. Anything else
// (slices, maps, structs, byte slices) is serialized into an opaque text
// value and decoded transparently on read; such values can be matched by
// equality but not compared or ordered.
//
// # Typed access
//
//	type User struct {
//	    Name string   `nosqlite:"name"`
//	    Age  int      `nosqlite:"age,omitempty"`
//	    Tags []string `nosqlite:"tags,omitempty"`
//	}
//
//	typed, _ := nosqlite.NewTypedCollection[User](users)
//	u, _ := typed.FindOne(ctx, nosqlite.NewQuery().Eq("name", "ann"))
package nosqlite
