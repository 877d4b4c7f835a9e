package prompts

func init() {
	register(&Template{
		Name:        "server-name",
		Description: "Discord server names from keywords",
		Required:    []string{"keywords"},
	}, `You are an expert in naming Discord servers. Generate 5-10 unique, catchy, and memorable server names for a Discord server focused on "{{.keywords}}". List each name on a new line.`)

	register(&Template{
		Name:        "server-description",
		Description: "Server description under Discord's 1000 character limit",
		Required:    []string{"serverName", "description"},
		MaxTokens:   400,
	}, `Write a compelling and informative Discord server description for a server named "{{.serverName}}" with the following details: {{.description}}. Keep it concise, engaging, and optimized to attract new members. The description should be under 1000 characters as per Discord's limits.`)

	register(&Template{
		Name:        "channel-name",
		Description: "Channel names for a category, text and voice",
		Required:    []string{"serverTheme", "category"},
		MaxTokens:   350,
	}, `Generate a list of 8-12 organized Discord channel names for a server with the theme "{{.serverTheme}}" for the category "{{.category}}". List each channel name on a new line, following Discord's naming convention (lowercase, no spaces, use hyphens instead). Include a mix of text and voice channels, and indicate which is which with [TEXT] or [VOICE] prefix.`)

	register(&Template{
		Name:        "welcome-message",
		Description: "Welcome message for new members",
		Required:    []string{"serverName", "serverTheme"},
		MaxTokens:   350,
	}, `Write a friendly and engaging welcome message for new members joining a Discord server named "{{.serverName}}" with the theme "{{.serverTheme}}". Include a brief introduction to the server, mention 2-3 key channels they should check out, and encourage them to introduce themselves. The message should be warm, inclusive, and reflect the server's theme.`)

	register(&Template{
		Name:        "bot-command",
		Description: "Bot commands with example responses",
		Required:    []string{"botName", "botPurpose"},
		MaxTokens:   500,
	}, `Generate a list of 5-8 useful Discord bot commands and their responses for a bot named "{{.botName}}" with the purpose: "{{.botPurpose}}". For each command, include:
1. The command syntax (e.g., !command or /command)
2. A brief description of what the command does
3. An example of the bot's response when the command is used
4. Any parameters the command might need

Format each command as:
Command: [command syntax]
Description: [what it does]
Parameters: [any required or optional parameters]
Response: [example of bot response]

Ensure the commands are relevant to the bot's purpose and would be useful in a Discord server.`)

	register(&Template{
		Name:        "role-name",
		Description: "Themed role names with suggested colors",
		Required:    []string{"serverTheme", "roleType"},
		MaxTokens:   350,
	}, `Generate a list of 8-12 creative and thematic Discord role names for a server with the theme "{{.serverTheme}}" for the role type "{{.roleType}}" (e.g., moderators, regular members, VIPs, etc.). List each role name on a new line. The names should be creative, fit the server theme, and be appropriate for Discord. Include a suggested color hex code for each role in parentheses after the name.`)

	register(&Template{
		Name:        "server-rules",
		Description: "Numbered server rules with explanations",
		Required:    []string{"serverName", "serverFocus", "moderationStyle"},
		MaxTokens:   500,
	}, `Create a comprehensive set of 8-12 Discord server rules for a server named "{{.serverName}}" focused on {{.serverFocus}}, with a {{.moderationStyle}} moderation style. The rules should be clear, fair, and help maintain a positive community. Format each rule with a number and a brief explanation of why the rule exists. Include rules about chat etiquette, content restrictions, channel usage, and respect for other members.`)

	register(&Template{
		Name:        "announcement",
		Description: "Server announcement with Discord markdown",
		Required:    []string{"announcementType", "details"},
		MaxTokens:   300,
	}, `Generate a clear, engaging Discord server announcement for {{.announcementType}} with these details: {{.details}}. The announcement should be attention-grabbing, informative, and formatted appropriately for Discord (can include emojis, basic markdown like **bold** and *italics*). Make it exciting and community-focused.`)

	register(&Template{
		Name:        "emoji",
		Description: "Custom emoji ideas with names",
		Required:    []string{"theme", "emojiType"},
		MaxTokens:   500,
	}, `Generate 5-10 creative emoji ideas for a Discord server with the theme "{{.theme}}" and emoji type "{{.emojiType}}". For each emoji, provide a name (lowercase with underscores) and a brief description. List each emoji on a new line.`)

	register(&Template{
		Name:        "event",
		Description: "Event description and schedule",
		Required:    []string{"eventType", "details"},
		MaxTokens:   500,
	}, `Generate a detailed Discord event description and schedule for a {{.eventType}} event with these details: {{.details}}.
The response should include:
1. An attention-grabbing event title
2. A detailed description of the event (using Discord markdown formatting like **bold** and *italics* where appropriate)
3. Date and time suggestions (if not specified in the details)
4. Any requirements or preparations for participants
5. A brief schedule of activities during the event

Make it exciting, community-focused, and formatted appropriately for Discord.`)

	register(&Template{
		Name:        "moderation",
		Description: "Moderator response to a rule violation",
		Required:    []string{"violationType", "severity"},
		Optional:    []string{"context"},
		MaxTokens:   500,
	}, `Generate a professional Discord moderator response template for a {{.severity}} {{.violationType}} rule violation.{{with .context}} Additional context: {{.}}{{end}}

The response should include:
1. A clear and professional greeting
2. An explanation of which rule was violated and how
3. The consequences of this violation (warning, timeout, kick, ban, etc.) appropriate for the severity level
4. An explanation of why the rule exists and why it's important for the community
5. Instructions for appealing the decision if applicable
6. A professional closing

Format the response using Discord markdown (bold, italics, etc.) where appropriate to enhance readability. The tone should be firm but fair, professional, and not condescending or overly harsh. The response should be usable as a template that moderators can customize for specific situations.`)

	register(&Template{
		Name:        "poll",
		Description: "Poll question, options and voting instructions",
		Required:    []string{"topic", "details"},
		MaxTokens:   400,
	}, `Generate an engaging Discord poll about "{{.topic}}" with these details: {{.details}}.
The response should include:
1. A clear and attention-grabbing poll question
2. 4-8 well-crafted poll options that cover a good range of possible answers
3. A brief introduction explaining the purpose of the poll (using Discord markdown formatting like **bold** and *italics* where appropriate)
4. A short conclusion with instructions on how to vote (e.g., using reactions)

Make it engaging, community-focused, and formatted appropriately for Discord.`)

	register(&Template{
		Name:        "webhook",
		Description: "Webhook setup for an external service",
		Required:    []string{"service", "purpose"},
		MaxTokens:   600,
	}, `Generate a detailed Discord webhook configuration for integrating with {{.service}} for the purpose of {{.purpose}}.

The response should include:
1. A webhook name and avatar suggestion that fits the integration purpose
2. Detailed JSON configuration with all necessary parameters (using Discord markdown code blocks for formatting)
3. Step-by-step instructions on how to set up the webhook in Discord
4. Step-by-step instructions on how to configure the webhook in {{.service}}
5. Examples of events/triggers that would be useful to configure
6. Any security considerations or best practices for this integration

Format the response in a clear, organized way with appropriate headers and sections. Use Discord markdown formatting like **bold** and *italics* where appropriate.`)
}
