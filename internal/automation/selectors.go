package automation

// Target is a logical UI element with selector strategies ranked by reliability.
type Target struct {
	Name       string
	Strategies []string
}

// WhatsApp Web markup changes often; each target carries older and newer
// selectors so a single markup change does not break delivery.
var (
	SearchBox = Target{Name: "search_box", Strategies: []string{
		"//div[@contenteditable='true'][@data-tab='3']",
		"//div[@contenteditable='true'][@title='Search input textbox']",
		"//div[@id='side']//div[@contenteditable='true'][@role='textbox']",
	}}

	FirstResult = Target{Name: "first_result", Strategies: []string{
		"//div[@id='pane-side']//div[@role='listitem'][1]",
		"//div[@role='listitem'][1]",
		"//div[@data-testid='cell-frame-container'][1]",
	}}

	NoResults = Target{Name: "no_results", Strategies: []string{
		"//*[contains(text(),'No chats, contacts or messages found')]",
		"//*[contains(text(),'No results found for')]",
	}}

	ConversationPane = Target{Name: "conversation_pane", Strategies: []string{
		"//div[@id='main']",
		"//div[@data-testid='conversation-panel-wrapper']",
	}}

	MessageBox = Target{Name: "message_box", Strategies: []string{
		"//footer//div[@contenteditable='true'][@data-tab='10']",
		"//div[@contenteditable='true'][@data-testid='conversation-compose-box-input']",
		"//footer//div[@contenteditable='true'][@role='textbox']",
	}}

	AttachButton = Target{Name: "attach_button", Strategies: []string{
		"//span[@data-testid='clip']",
		"//div[@data-testid='clip']",
		"//span[@data-icon='attach']",
		"//span[@data-icon='plus-rounded']",
		"//button[@title='Attach']",
		"//button[@aria-label='Attach']",
	}}

	AttachMenu = Target{Name: "attach_menu", Strategies: []string{
		"//div[@role='application']//ul",
		"//div[@role='menu']",
		"//ul[.//li[@data-animate-dropdown-item='true']]",
	}}

	AttachMenuEntries = Target{Name: "attach_menu_entries", Strategies: []string{
		"//div[@role='application']//ul//li",
		"//div[@role='menu']//*[@role='menuitem']",
		"//li[@data-animate-dropdown-item='true']",
	}}

	MediaInput = Target{Name: "media_input", Strategies: []string{
		"//input[@type='file'][contains(@accept,'image')][contains(@accept,'video')]",
		"//input[@type='file'][contains(@accept,'image')]",
	}}

	StickerSurface = Target{Name: "sticker_surface", Strategies: []string{
		"//div[@data-testid='sticker-maker']",
		"//*[@role='dialog'][.//*[contains(text(),'sticker') or contains(text(),'Sticker')]]",
	}}

	MediaPreview = Target{Name: "media_preview", Strategies: []string{
		"//div[@data-testid='media-editor-root']",
		"//div[@contenteditable='true'][@data-tab='11']",
		"//span[@data-icon='x-viewer']",
	}}

	CaptionBox = Target{Name: "caption_box", Strategies: []string{
		"//div[@contenteditable='true'][@data-tab='11']",
		"//div[@data-testid='media-caption-input-container']//div[@contenteditable='true']",
		"//div[@contenteditable='true'][contains(translate(@aria-placeholder,'CAPTION','caption'),'caption')]",
	}}

	SendButton = Target{Name: "send_button", Strategies: []string{
		"//span[@data-testid='send']",
		"//span[@data-icon='send']",
		"//div[@role='button'][@aria-label='Send']",
		"//button[@aria-label='Send']",
	}}

	ClosePreview = Target{Name: "close_preview", Strategies: []string{
		"//div[@data-testid='media-editor-root']//span[@data-icon='close']",
		"//span[@data-icon='x-viewer']",
		"//div[@role='button'][@aria-label='Close']",
	}}
)

// excludedMenuLabels are attachment entries that must never be chosen when
// looking for the photos option by label.
var excludedMenuLabels = []string{"sticker", "document", "camera", "contact", "poll", "event", "audio"}

// mediaMenuLabels identify the photos option by accessible label.
var mediaMenuLabels = []string{"photos", "photo", "media", "videos"}

// MediaMenuOrdinal is the 1-based position of the photos option in the attachment menu.
const MediaMenuOrdinal = 2

// WhatsAppURL is the client's home.
const WhatsAppURL = "https://web.whatsapp.com"
