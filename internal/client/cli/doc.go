// Package cli provides the taskmate command-line client.
//
// Commands:
//   - login [--id-token T]  exchange an identity token for a session
//   - logout                end the session and forget the token
//   - whoami                print the signed-in user
//   - push <snapshot.json>  replace the server state with a local snapshot
//   - pull [-o file]        download the server state
//   - prefs <prefs.json>    merge local preferences with the server's
//
// The token is kept in the configured token file and sent as a Bearer
// header. See NewRootCommand.
package cli
