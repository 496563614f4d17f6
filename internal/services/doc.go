// Package services defines the [TermService] interface for accounting registries and implements it for QuickBooks Desktop and QuickBooks Online.
//
// # Service Interface
//
// Both registries implement a common abstraction, so reconciliation and sync work uniformly against either backend.
//
// # QuickBooks Desktop Implementation
//
// [DesktopService] communicates with the QBXML bridge daemon running next to the desktop application.
//
// The bridge relays QBXML envelopes (qbxml.go) to the SDK request processor and owns the
// company-file connection. Requests are rate limited because the bridge serializes them
// onto a single connection. Batched creations run with onError="continueOnError" so one
// rejected term does not abort the rest of the batch.
//
// # QuickBooks Online Implementation
//
// [OnlineService] uses OAuth2 for authentication with automatic token refresh.
//
// The [oauth2.Client] refreshes expired access tokens using the refresh token; refreshed
// tokens are reported through a callback so the CLI can persist them to the config file.
//
// # OAuth Service Extension
//
// The [OAuthService] interface extends TermService for OAuth providers
//
// [OnlineService] implements this for the server-side authorization flow used by the auth command.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrRegistryUnavailable] : registry cannot be reached or refuses a session
//   - [shared.ErrTokenExpired] : no usable OAuth token, reauthorization needed
//   - [shared.ErrAPIRequest] : HTTP request failed with a registry status code
//   - [shared.ErrMissingCredentials] : required credential keys absent
//
// # API Mappings
//
// Both services convert registry records to models.Term:
//   - Desktop: Maps [TermRet] → [models.Term] with the id from StdDiscountDays
//   - Online: Maps [OnlineTerm] → [models.Term] with the id from discount_days
//
// The cross-reference field carries the source id; records without it were not created by
// the sync and are skipped during fetch.
package services
