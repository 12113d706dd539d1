package message

// Placeholders are listed next to each template in argument order.

func prefixed(children ...Component) Component {
	prefix := Group(Gray, Text("[", ""), Text("WR", Gold, Bold), Text("] ", ""))
	return Component{}.Append(prefix).Append(children...)
}

func words(color Color, parts ...Component) Component {
	c := Join(Space(), parts...)
	c.Color = color
	return c
}

var (
	// PluginInfo: {0} authors, {1} version.
	PluginInfo = Template{Name: "plugin_info", Body: Group(Yellow,
		Text("WorldReset", Gold), Space(), Text("by", ""), Space(), Text("{0}", ""),
		Text(" - ", Gray), Text("v{1}", ""),
	)}

	NoPermission = Template{Name: "no_permission", Body: prefixed(
		Text("You are not allowed to run this command", Red),
	)}

	// ConsoleIncompleteCommand: {0} what is missing, e.g. "provide a world".
	ConsoleIncompleteCommand = Template{Name: "console_incomplete_command", Body: prefixed(
		words(Red, Text("Please", ""), Text("{0}", ""), Text("when running this command from console", "")),
	)}

	// ScheduledSuccessfully: {0} world, {1} short interval, {2} long interval.
	ScheduledSuccessfully = Template{Name: "scheduled_successfully", Body: prefixed(
		words(Gray,
			Text("World reset scheduled successfully.", ""),
			Text("World", ""),
			Text("{0}", Aqua),
			Text("will reset every", ""),
			Text("{1}", Green).WithHover(Text("{2}", "")),
		),
	)}

	// RescheduledSuccessfully: {0} world, {1} short interval, {2} long interval.
	RescheduledSuccessfully = Template{Name: "rescheduled_successfully", Body: prefixed(
		words(Gray,
			Text("World reset rescheduled successfully.", ""),
			Text("World", ""),
			Text("{0}", Aqua),
			Text("will reset every", ""),
			Text("{1}", Green).WithHover(Text("{2}", "")),
		),
	)}

	// UnscheduledSuccessfully: {0} world.
	UnscheduledSuccessfully = Template{Name: "unscheduled_successfully", Body: prefixed(
		words(Gray, Text("World", ""), Text("{0}", Aqua), Text("has been unscheduled for reset", "")),
	)}

	// WasntScheduled: {0} world.
	WasntScheduled = Template{Name: "wasnt_scheduled", Body: prefixed(
		words(Gray, Text("World", ""), Text("{0}", Aqua), Text("was not scheduled for reset", "")),
	)}

	ListTitle = Template{Name: "list_title", Body: prefixed(
		Group(White,
			Text("Worlds scheduled to reset", ""), Space(),
			Group(Gray, Text("(", ""),
				Join(Text(" - ", ""), Text("world", ""), Text("next reset", ""), Text("interval", "")),
				Text(")", "")),
			Text(":", ""),
		),
	)}

	// ListElement: {0} world, {1} short time left, {2} long time left,
	// {3} short interval, {4} long interval.
	ListElement = Template{Name: "list_element", Body: prefixed(
		Join(Text(" - ", Gray),
			Text("{0}", Aqua).WithHover(Group("", Text("Click to unschedule", White), Space(), Text("{0}", Aqua))),
			Text("{1}", Green).WithHover(Text("{2}", White)),
			Text("{3}", Green).WithHover(Text("{4}", White)),
		).WithClick(SuggestCommand, "/worldreset unschedule {0}"),
	)}

	// ListElementNextRestart is ListElement for a reset that is already due:
	// {0} world, {1} short interval, {2} long interval.
	ListElementNextRestart = Template{Name: "list_element_next_restart", Body: prefixed(
		Join(Text(" - ", Gray),
			Text("{0}", Aqua).WithHover(Group("", Text("Click to unschedule", White), Space(), Text("{0}", Aqua))),
			Text("Next server restart", Green),
			Text("{1}", Green).WithHover(Text("{2}", White)),
		).WithClick(SuggestCommand, "/worldreset unschedule {0}"),
	)}

	ListNoElement = Template{Name: "list_no_element", Body: prefixed(
		Text("There are no scheduled resets", Gray),
	)}

	ErrorWhileSaving = Template{Name: "error_while_saving", Body: prefixed(
		Group(Red, Text("There was an error while saving scheduled data.", ""), Space(),
			Text("Please check console for any errors", "")),
	)}

	UsageTitle = Template{Name: "usage_title", Body: prefixed(
		Text("Usage(s):", White),
	)}

	// UsageCommand: {0} usage line without the leading slash.
	UsageCommand = Template{Name: "usage_command", Body: Group(Red, Text("/", ""), Text("{0}", "")).
		WithHover(Group("", Text("Click to run:", White), Space(), Text("/", Gray), Text("{0}", Gray))).
		WithClick(SuggestCommand, "/{0}")}

	// UnknownWorld: {0} the name given.
	UnknownWorld = Template{Name: "unknown_world", Body: prefixed(
		words(Red, Text("No world for name", ""), Text("{0}", Aqua), Text("was found", "")),
	)}

	// CommandError: {0} the error text.
	CommandError = Template{Name: "command_error", Body: prefixed(
		Text("{0}", Red),
	)}

	Reloaded = Template{Name: "reloaded", Body: prefixed(
		Text("Configuration reloaded", Green),
	)}

	// ReloadFailed: {0} the error text.
	ReloadFailed = Template{Name: "reload_failed", Body: prefixed(
		Group(Red, Text("Could not reload the configuration: ", ""), Text("{0}", "")),
	)}
)

// All lists every template in the catalogue.
var All = []Template{
	PluginInfo, NoPermission, ConsoleIncompleteCommand, ScheduledSuccessfully,
	RescheduledSuccessfully, UnscheduledSuccessfully, WasntScheduled, ListTitle,
	ListElement, ListElementNextRestart, ListNoElement, ErrorWhileSaving,
	UsageTitle, UsageCommand, UnknownWorld, CommandError, Reloaded, ReloadFailed,
}
