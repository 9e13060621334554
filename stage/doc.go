// Package stage implements the Stage, the orchestrator that moves users
// between scenes and routes their messages to the active one.
//
// A Stage holds an immutable-by-convention registry of scenes and a
// core.SessionStore. It keeps no per-user state of its own: everything it
// knows about a user lives in the session record, which it reads at the start
// of each operation and writes back before returning.
//
// Transition protocol (Enter):
//
//  1. load the user's session (absent means an empty record)
//  2. run the leave handlers of the currently active scene, if registered
//  3. an empty target name deletes the session and stops here
//  4. persist the record naming the target scene
//  5. run the target's enter handlers and persist the data they produced
//
// Message dispatch (HandleMessage) attaches the session data to the context,
// runs the active scene's message handlers and writes the data back.
//
// Usage:
//
//	st := stage.New(func(o *stage.Options) {
//	    o.SessionStore = session.NewInMemoryStore()
//	})
//	st.Register(greet, signup)
//
//	ctx := core.NewContext(context.Background(), "user-1")
//	if err := st.Enter(ctx, "greet"); err != nil {
//	    return err
//	}
package stage
