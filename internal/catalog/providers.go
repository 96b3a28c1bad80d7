package catalog

// Default assembles the catalog from the built-in providers. Integration
// providers hand in a predicate so their definitions only load when the
// integrated system is actually present.
func Default(integrationActive func(name string) bool) (*Catalog, error) {
	c := New()
	if err := c.Register("core", nil, coreDefinitions()); err != nil {
		return nil, err
	}
	active := func(name string) func() bool {
		return func() bool {
			return integrationActive != nil && integrationActive(name)
		}
	}
	if err := c.Register("woocommerce", active("woocommerce"), wooCommerceDefinitions()); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func coreDefinitions() []Definition {
	return []Definition{
		{
			ID:              UserLoggedIn,
			Severity:        SeverityInformational,
			Description:     "User logged in",
			MessageTemplate: "Successfully logged in",
			ObjectTag:       "user",
			ActionTag:       "login",
		},
		{
			ID:              LoginFailedWrongPassword,
			Severity:        SeverityMedium,
			Description:     "Login failed: wrong password",
			MessageTemplate: "Failed login attempt using a correct username but wrong password",
			MetadataLabels:  []Label{{"Attempts", "%Attempts%"}},
			ObjectTag:       "user",
			ActionTag:       "failed-login",
		},
		{
			ID:              LoginFailedWrongUsername,
			Severity:        SeverityMedium,
			Description:     "Login failed: unknown username",
			MessageTemplate: "Failed login attempt using a non-existing username %Username%",
			MetadataLabels:  []Label{{"Attempts", "%Attempts%"}},
			ObjectTag:       "user",
			ActionTag:       "failed-login",
		},

		{
			ID:              PostPublished,
			Severity:        SeverityLow,
			Description:     "Post published",
			MessageTemplate: "Published the post %PostTitle%",
			LinkLabels:      []Label{{"View post", "%PostUrl%"}, {"View post in editor", "%EditorLink%"}},
			ObjectTag:       "post",
			ActionTag:       "published",
		},
		{
			ID:              PostModified,
			Severity:        SeverityLow,
			Description:     "Post modified",
			MessageTemplate: "Modified the post %PostTitle%",
			LinkLabels:      []Label{{"View post in editor", "%EditorLink%"}},
			ObjectTag:       "post",
			ActionTag:       "modified",
		},
		{
			ID:              PostDeleted,
			Severity:        SeverityMedium,
			Description:     "Post permanently deleted",
			MessageTemplate: "Permanently deleted the post %PostTitle%",
			ObjectTag:       "post",
			ActionTag:       "deleted",
		},
		{
			ID:              PostTrashed,
			Severity:        SeverityLow,
			Description:     "Post moved to trash",
			MessageTemplate: "Moved the post %PostTitle% to trash",
			LinkLabels:      []Label{{"View post", "%PostUrl%"}},
			ObjectTag:       "post",
			ActionTag:       "trashed",
		},
		{
			ID:              PostStatusChanged,
			Severity:        SeverityLow,
			Description:     "Post status changed",
			MessageTemplate: "Changed the status of the post %PostTitle% from %OldStatus% to %NewStatus%",
			LinkLabels:      []Label{{"View post in editor", "%EditorLink%"}},
			ObjectTag:       "post",
			ActionTag:       "status-changed",
		},

		{
			ID:              FileUploaded,
			Severity:        SeverityLow,
			Description:     "File uploaded",
			MessageTemplate: "Uploaded the file %FileName% to %FilePath%",
			ObjectTag:       "file",
			ActionTag:       "added",
		},
		{
			ID:              FileDeleted,
			Severity:        SeverityMedium,
			Description:     "File deleted",
			MessageTemplate: "Deleted the file %FileName% from %FilePath%",
			ObjectTag:       "file",
			ActionTag:       "deleted",
		},
		{
			ID:              FileModified,
			Severity:        SeverityHigh,
			Description:     "File modified in editor",
			MessageTemplate: "Modified the file %FileName% with the theme or plugin editor",
			ObjectTag:       "file",
			ActionTag:       "modified",
		},

		{
			ID:              UserRegistered,
			Severity:        SeverityMedium,
			Description:     "New user registered",
			MessageTemplate: "A new user %NewUser% registered on the site",
			ObjectTag:       "user-profile",
			ActionTag:       "created",
		},
		{
			ID:              UserCreatedByAdmin,
			Severity:        SeverityMedium,
			Description:     "User created by administrator",
			MessageTemplate: "Created the new user %NewUser% with the role %Role%",
			ObjectTag:       "user-profile",
			ActionTag:       "created",
		},
		{
			ID:              UserRoleChanged,
			Severity:        SeverityHigh,
			Description:     "User role changed",
			MessageTemplate: "Changed the role of the user %TargetUser% from %OldRole% to %NewRole%",
			ObjectTag:       "user-profile",
			ActionTag:       "modified",
		},
		{
			ID:              UserChangedOwnPassword,
			Severity:        SeverityMedium,
			Description:     "User changed own password",
			MessageTemplate: "Changed the password",
			ObjectTag:       "user-profile",
			ActionTag:       "modified",
		},
		{
			ID:              UserPasswordForced,
			Severity:        SeverityHigh,
			Description:     "User password changed by administrator",
			MessageTemplate: "Changed the password of the user %TargetUser%",
			ObjectTag:       "user-profile",
			ActionTag:       "modified",
		},
		{
			ID:              UserEmailChanged,
			Severity:        SeverityMedium,
			Description:     "User email changed",
			MessageTemplate: "Changed the email address of the user %TargetUser% to %NewEmail%",
			ObjectTag:       "user-profile",
			ActionTag:       "modified",
		},
		{
			ID:              UserProfileUpdated,
			Severity:        SeverityLow,
			Description:     "User profile updated",
			MessageTemplate: "Updated the profile of the user %TargetUser%",
			ObjectTag:       "user-profile",
			ActionTag:       "modified",
		},
		{
			ID:              UserDeleted,
			Severity:        SeverityHigh,
			Description:     "User deleted",
			MessageTemplate: "Deleted the user %TargetUser%",
			ObjectTag:       "user-profile",
			ActionTag:       "deleted",
		},
		{
			ID:              UserAddedToSite,
			Severity:        SeverityMedium,
			Description:     "User added to network site",
			MessageTemplate: "Added the user %TargetUser% to the site %SiteName%",
			ObjectTag:       "multisite",
			ActionTag:       "modified",
		},
		{
			ID:              UserRemovedFromSite,
			Severity:        SeverityMedium,
			Description:     "User removed from network site",
			MessageTemplate: "Removed the user %TargetUser% from the site %SiteName%",
			ObjectTag:       "multisite",
			ActionTag:       "modified",
		},

		{
			ID:              PluginInstalled,
			Severity:        SeverityHigh,
			Description:     "Plugin installed",
			MessageTemplate: "Installed the plugin %Plugin%",
			ObjectTag:       "plugin",
			ActionTag:       "installed",
		},
		{
			ID:              PluginActivated,
			Severity:        SeverityHigh,
			Description:     "Plugin activated",
			MessageTemplate: "Activated the plugin %Plugin%",
			ObjectTag:       "plugin",
			ActionTag:       "activated",
		},
		{
			ID:              PluginDeactivated,
			Severity:        SeverityHigh,
			Description:     "Plugin deactivated",
			MessageTemplate: "Deactivated the plugin %Plugin%",
			ObjectTag:       "plugin",
			ActionTag:       "deactivated",
		},
		{
			ID:              PluginUninstalled,
			Severity:        SeverityHigh,
			Description:     "Plugin uninstalled",
			MessageTemplate: "Uninstalled the plugin %Plugin%",
			ObjectTag:       "plugin",
			ActionTag:       "uninstalled",
		},
		{
			ID:              PluginUpgraded,
			Severity:        SeverityMedium,
			Description:     "Plugin upgraded",
			MessageTemplate: "Upgraded the plugin %Plugin%",
			ObjectTag:       "plugin",
			ActionTag:       "upgraded",
		},

		{
			ID:              PluginCreatedTable,
			Severity:        SeverityLow,
			Description:     "Plugin created database table",
			MessageTemplate: "The plugin %Actor% created the table %TableName% in the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "created",
		},
		{
			ID:              PluginModifiedTable,
			Severity:        SeverityLow,
			Description:     "Plugin modified database table",
			MessageTemplate: "The plugin %Actor% modified the structure of the table %TableName%",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "modified",
		},
		{
			ID:              PluginDeletedTable,
			Severity:        SeverityMedium,
			Description:     "Plugin deleted database table",
			MessageTemplate: "The plugin %Actor% deleted the table %TableName% from the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "deleted",
		},
		{
			ID:              ThemeCreatedTable,
			Severity:        SeverityLow,
			Description:     "Theme created database table",
			MessageTemplate: "The theme %Actor% created the table %TableName% in the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "created",
		},
		{
			ID:              ThemeDeletedTable,
			Severity:        SeverityMedium,
			Description:     "Theme deleted database table",
			MessageTemplate: "The theme %Actor% deleted the table %TableName% from the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "deleted",
		},
		{
			ID:              UnknownCreatedTable,
			Severity:        SeverityLow,
			Description:     "Unknown component created database table",
			MessageTemplate: "An unknown component created the table %TableName% in the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "created",
		},
		{
			ID:              UnknownDeletedTable,
			Severity:        SeverityMedium,
			Description:     "Unknown component deleted database table",
			MessageTemplate: "An unknown component deleted the table %TableName% from the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "deleted",
		},
		{
			ID:              CoreCreatedTable,
			Severity:        SeverityInformational,
			Description:     "WordPress created database table",
			MessageTemplate: "WordPress created the table %TableName% in the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "created",
		},
		{
			ID:              CoreModifiedTable,
			Severity:        SeverityInformational,
			Description:     "WordPress modified database table",
			MessageTemplate: "WordPress modified the structure of the table %TableName%",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "modified",
		},
		{
			ID:              CoreDeletedTable,
			Severity:        SeverityLow,
			Description:     "WordPress deleted database table",
			MessageTemplate: "WordPress deleted the table %TableName% from the database",
			MetadataLabels:  []Label{{"Table", "%TableName%"}},
			ObjectTag:       "database",
			ActionTag:       "deleted",
		},

		{
			ID:              OptionChanged,
			Severity:        SeverityMedium,
			Description:     "Site option changed",
			MessageTemplate: "Changed the site option %OptionName% from %OldValue% to %NewValue%",
			ObjectTag:       "system",
			ActionTag:       "modified",
		},
		{
			ID:              SiteURLChanged,
			Severity:        SeverityCritical,
			Description:     "Site URL changed",
			MessageTemplate: "Changed the site URL from %OldUrl% to %NewUrl%",
			ObjectTag:       "system",
			ActionTag:       "modified",
		},
		{
			ID:              CoreUpdated,
			Severity:        SeverityCritical,
			Description:     "WordPress updated",
			MessageTemplate: "Updated WordPress from version %OldVersion% to %NewVersion%",
			ObjectTag:       "system",
			ActionTag:       "upgraded",
		},
		{
			ID:              PermalinksChanged,
			Severity:        SeverityMedium,
			Description:     "Permalink structure changed",
			MessageTemplate: "Changed the permalink structure to %NewPattern%",
			ObjectTag:       "system",
			ActionTag:       "modified",
		},
		{
			ID:              User404,
			Severity:        SeverityMedium,
			Description:     "Logged-in user requested a non-existing page",
			MessageTemplate: "Requested a non-existing page %Msg%",
			MetadataLabels:  []Label{{"Attempts", "%Attempts%"}, {"Requested URL", "%URL%"}},
			LinkLabels:      []Label{{"404 log file", "%LinkFile%"}},
			ObjectTag:       "web-request",
			ActionTag:       "failed",
		},

		{
			ID:              NetworkSiteAdded,
			Severity:        SeverityHigh,
			Description:     "Network site added",
			MessageTemplate: "Added the new site %SiteName% to the network",
			ObjectTag:       "multisite",
			ActionTag:       "created",
		},
		{
			ID:              NetworkSiteArchived,
			Severity:        SeverityMedium,
			Description:     "Network site archived",
			MessageTemplate: "Archived the site %SiteName%",
			ObjectTag:       "multisite",
			ActionTag:       "modified",
		},
		{
			ID:              NetworkSiteUnarchived,
			Severity:        SeverityMedium,
			Description:     "Network site unarchived",
			MessageTemplate: "Unarchived the site %SiteName%",
			ObjectTag:       "multisite",
			ActionTag:       "modified",
		},
		{
			ID:              NetworkSiteActivated,
			Severity:        SeverityMedium,
			Description:     "Network site activated",
			MessageTemplate: "Activated the site %SiteName%",
			ObjectTag:       "multisite",
			ActionTag:       "modified",
		},
		{
			ID:              NetworkSiteDeactivated,
			Severity:        SeverityMedium,
			Description:     "Network site deactivated",
			MessageTemplate: "Deactivated the site %SiteName%",
			ObjectTag:       "multisite",
			ActionTag:       "modified",
		},
		{
			ID:              NetworkSiteDeleted,
			Severity:        SeverityHigh,
			Description:     "Network site deleted",
			MessageTemplate: "Deleted the site %SiteName% from the network",
			ObjectTag:       "multisite",
			ActionTag:       "deleted",
		},
	}
}

// wooCommerceDefinitions is a representative integration provider. The real
// system ships hundreds of these tables; only the shape matters here.
func wooCommerceDefinitions() []Definition {
	return []Definition{
		{
			ID:              9000,
			Severity:        SeverityLow,
			Description:     "Product created",
			MessageTemplate: "Created the product %ProductTitle%",
			LinkLabels:      []Label{{"View product in editor", "%EditorLink%"}},
			ObjectTag:       "woocommerce-product",
			ActionTag:       "created",
		},
		{
			ID:              9001,
			Severity:        SeverityMedium,
			Description:     "Product modified",
			MessageTemplate: "Modified the product %ProductTitle%",
			LinkLabels:      []Label{{"View product in editor", "%EditorLink%"}},
			ObjectTag:       "woocommerce-product",
			ActionTag:       "modified",
		},
		{
			ID:              9035,
			Severity:        SeverityHigh,
			Description:     "Product price changed",
			MessageTemplate: "Changed the price of the product %ProductTitle% from %OldPrice% to %NewPrice%",
			ObjectTag:       "woocommerce-product",
			ActionTag:       "modified",
		},
	}
}
