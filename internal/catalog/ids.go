package catalog

// Stable alert ids. These are external references; never renumber.
const (
	UserLoggedIn             = 1000
	LoginFailedWrongPassword = 1002
	LoginFailedWrongUsername = 1003

	PostPublished     = 2001
	PostModified      = 2002
	PostDeleted       = 2008
	FileUploaded      = 2010
	FileDeleted       = 2011
	PostTrashed       = 2012
	PostStatusChanged = 2021
	FileModified      = 2046

	UserRegistered         = 4000
	UserCreatedByAdmin     = 4001
	UserRoleChanged        = 4002
	UserChangedOwnPassword = 4003
	UserPasswordForced     = 4004
	UserEmailChanged       = 4005
	UserProfileUpdated     = 4006
	UserDeleted            = 4007
	UserAddedToSite        = 4010
	UserRemovedFromSite    = 4011

	PluginInstalled   = 5000
	PluginActivated   = 5001
	PluginDeactivated = 5002
	PluginUninstalled = 5003
	PluginUpgraded    = 5004

	PluginCreatedTable  = 5010
	PluginModifiedTable = 5011
	PluginDeletedTable  = 5012
	ThemeCreatedTable   = 5013
	ThemeDeletedTable   = 5015
	UnknownCreatedTable = 5016
	UnknownDeletedTable = 5018
	CoreCreatedTable    = 5022
	CoreModifiedTable   = 5023
	CoreDeletedTable    = 5024

	OptionChanged     = 6001
	SiteURLChanged    = 6003
	CoreUpdated       = 6004
	PermalinksChanged = 6005
	User404           = 6007

	NetworkSiteAdded       = 7000
	NetworkSiteArchived    = 7001
	NetworkSiteUnarchived  = 7002
	NetworkSiteActivated   = 7003
	NetworkSiteDeactivated = 7004
	NetworkSiteDeleted     = 7005
)

// IDSet is a small membership helper for the digest bucket routing tables.
type IDSet map[int]bool

func NewIDSet(ids ...int) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

func (s IDSet) Has(id int) bool { return s[id] }
