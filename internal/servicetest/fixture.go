package servicetest

import (
	"github.com/spec-kit/crew-ticket-service/internal/domain"
	"github.com/spec-kit/crew-ticket-service/internal/gateway"
)

// Seed installs a small world shared by service and handler tests:
//
//	O1 "Vanguard": team-1 (forum F1, tags "tag-*") with crews crew-log (LOG),
//	crew-med (MED) and the secure-only crew-sec (SEC); identities U1, U2, U3
//	and the administrator ADMIN.
//	O2 "Outpost": team-2 (forum F2, tags "o2-*") with crew-far; identity U3.
//
// Channels chan-open (text), chan-private (private text) and chan-voice (not text).
func Seed(store *Store, gw *Gateway) {
	store.SeedTeam("team-1", "O1", "F1", "tag-")
	store.SeedTeam("team-2", "O2", "F2", "o2-")

	store.Mu.Lock()
	store.Tags["team-1"] = append(store.Tags["team-1"],
		domain.TeamTag{TeamID: "team-1", Name: "LOG", ExternalID: "tag-log", Kind: domain.TagKindCrew},
		domain.TeamTag{TeamID: "team-1", Name: "Logistics", ExternalID: "tag-logistics", Kind: domain.TagKindDefault},
	)
	store.Crews["crew-log"] = domain.Crew{ID: "crew-log", OrganizationID: "O1", TeamID: "team-1", Name: "Logistics Crew", ShortName: "LOG", RoleID: "R-LOG"}
	store.Crews["crew-med"] = domain.Crew{ID: "crew-med", OrganizationID: "O1", TeamID: "team-1", Name: "Medical Crew", ShortName: "MED", RoleID: "R-MED"}
	store.Crews["crew-sec"] = domain.Crew{ID: "crew-sec", OrganizationID: "O1", TeamID: "team-1", Name: "Security Crew", ShortName: "SEC", RoleID: "R-SEC", IsSecureOnly: true}
	store.Crews["crew-far"] = domain.Crew{ID: "crew-far", OrganizationID: "O2", TeamID: "team-2", Name: "Far Crew", ShortName: "FAR", RoleID: "R-FAR"}
	store.Mu.Unlock()

	gw.mu.Lock()
	gw.Orgs["O1"] = &gateway.Organization{ID: "O1", Name: "Vanguard", IconURL: "https://img/o1.png"}
	gw.Orgs["O2"] = &gateway.Organization{ID: "O2", Name: "Outpost"}
	gw.Channels["chan-open"] = &gateway.Channel{ID: "chan-open", IsText: true}
	gw.Channels["chan-private"] = &gateway.Channel{ID: "chan-private", IsText: true, IsPrivate: true}
	gw.Channels["chan-voice"] = &gateway.Channel{ID: "chan-voice"}
	gw.mu.Unlock()

	for _, id := range []string{"U1", "U2", "U3"} {
		gw.AddIdentity("O1", gateway.Identity{ID: id, DisplayName: "user " + id})
	}
	gw.AddIdentity("O1", gateway.Identity{ID: "ADMIN", DisplayName: "admin", IsAdmin: true})
	gw.AddIdentity("O2", gateway.Identity{ID: "U3", DisplayName: "user U3"})
}
