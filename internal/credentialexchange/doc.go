// credentialexchange
//
// The credential resolution and rotation engine.
//
// Decodes the generic labelled entries of the secret store into typed
// records, decides which credential set is active for a logical name
// (cached role session, cached MFA session, then the long lived base
// credential), purges stale cached sessions as it goes, and performs the
// two STS exchange protocols whose results are persisted back as new
// cached session pairs.
package credentialexchange
